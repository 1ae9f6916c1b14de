package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"metacatalog/internal/domain"
)

// ErrDuplicate is returned when an insert violates a unique key
var ErrDuplicate = errors.New("duplicate key")

// Store opens transactions against the catalog database
type Store interface {
	// InTx runs fn inside a single transaction. The transaction commits when
	// fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases resources
	Close() error
}

// Tx exposes the DAOs bound to one transaction
type Tx interface {
	Entities() EntityDAO
	Relationships() RelationshipDAO
	Tags() TagDAO
	Extensions() ExtensionDAO
	Events() EventDAO
	Tokens() TokenDAO
}

// EntityRow is the stored form of an entity
type EntityRow struct {
	ID   uuid.UUID
	FQN  string
	JSON []byte
}

// EntityDAO stores entity JSON documents, one table per entity type
type EntityDAO interface {
	Insert(ctx context.Context, entityType string, row EntityRow) error
	Update(ctx context.Context, entityType string, row EntityRow) error
	// FindByID returns nil, nil when no entity has the id
	FindByID(ctx context.Context, entityType string, id uuid.UUID) (*EntityRow, error)
	// FindByName returns nil, nil when no entity has the FQN
	FindByName(ctx context.Context, entityType string, fqn string) (*EntityRow, error)
	// ListAfter returns up to limit rows with FQN > after, ordered by FQN
	ListAfter(ctx context.Context, entityType, fqnPrefix, after string, limit int) ([]EntityRow, error)
	// ListBefore returns up to limit rows with FQN < before, ordered by FQN
	ListBefore(ctx context.Context, entityType, fqnPrefix, before string, limit int) ([]EntityRow, error)
	Count(ctx context.Context, entityType, fqnPrefix string) (int, error)
	Delete(ctx context.Context, entityType string, id uuid.UUID) error
}

// RelationshipDAO stores directed edges between entities. An empty entity
// type argument matches any type.
type RelationshipDAO interface {
	Insert(ctx context.Context, edge *domain.Edge) error
	Delete(ctx context.Context, fromID, toID uuid.UUID, relation domain.Relationship) error
	// FindTo returns edges leaving fromID
	FindTo(ctx context.Context, fromID uuid.UUID, relation domain.Relationship, toEntity string) ([]domain.Edge, error)
	// FindFrom returns edges arriving at toID
	FindFrom(ctx context.Context, toID uuid.UUID, relation domain.Relationship, fromEntity string) ([]domain.Edge, error)
	DeleteFrom(ctx context.Context, fromID uuid.UUID, relation domain.Relationship, toEntity string) error
	DeleteTo(ctx context.Context, toID uuid.UUID, relation domain.Relationship, fromEntity string) error
	// DeleteAll removes every edge touching id
	DeleteAll(ctx context.Context, id uuid.UUID) error
}

// TagDAO stores tag categories, tags and tag usage
type TagDAO interface {
	InsertCategory(ctx context.Context, category *domain.TagCategory) error
	UpdateCategory(ctx context.Context, name string, category *domain.TagCategory) error
	// GetCategory returns nil, nil when the category does not exist
	GetCategory(ctx context.Context, name string) (*domain.TagCategory, error)
	ListCategories(ctx context.Context) ([]domain.TagCategory, error)

	InsertTag(ctx context.Context, tag *domain.Tag) error
	UpdateTag(ctx context.Context, fqn string, tag *domain.Tag) error
	// GetTag returns nil, nil when the tag does not exist
	GetTag(ctx context.Context, fqn string) (*domain.Tag, error)
	// ListChildren returns the tags one level below parentFQN
	ListChildren(ctx context.Context, parentFQN string) ([]domain.Tag, error)

	ApplyTag(ctx context.Context, label domain.TagLabel, targetFQN string) error
	GetTags(ctx context.Context, targetFQN string) ([]domain.TagLabel, error)
	DeleteTags(ctx context.Context, targetFQN string) error
	// DeleteTagsByPrefix removes usage for fqn and everything nested under it
	DeleteTagsByPrefix(ctx context.Context, fqn string) error
	UsageCount(ctx context.Context, tagFQNPrefix string) (int, error)
}

// Extension is one stored extension document
type Extension struct {
	Name string
	JSON []byte
}

// ExtensionDAO stores per-entity extension documents such as version snapshots
type ExtensionDAO interface {
	Insert(ctx context.Context, id uuid.UUID, name string, json []byte) error
	// Get returns nil, nil when the extension does not exist
	Get(ctx context.Context, id uuid.UUID, name string) ([]byte, error)
	List(ctx context.Context, id uuid.UUID, prefix string) ([]Extension, error)
	DeleteAll(ctx context.Context, id uuid.UUID) error
}

// EventDAO stores change events
type EventDAO interface {
	Insert(ctx context.Context, event *domain.ChangeEvent) error
	List(ctx context.Context, filter domain.EventFilter) ([]domain.ChangeEvent, error)
}

// Token is a stored API token; only the bcrypt hash of the secret is kept
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Hash      []byte
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// TokenDAO stores user API tokens
type TokenDAO interface {
	Insert(ctx context.Context, token *Token) error
	// Get returns nil, nil when the token does not exist
	Get(ctx context.Context, id uuid.UUID) (*Token, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Token, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
