package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"metacatalog/internal/apperror"
	"metacatalog/internal/auth"
	"metacatalog/internal/domain"
	"metacatalog/internal/metrics"
	"metacatalog/internal/repository"
)

// Paging defaults
const (
	DefaultLimit = 10
	MaxLimit     = 1000
)

// Options tunes the catalog
type Options struct {
	// BaseURL prefixes every href, e.g. "http://localhost:8585"
	BaseURL      string
	DefaultLimit int
	MaxLimit     int
}

// collections maps entity types to their REST collection path
var collections = map[string]string{
	domain.EntityUser:            "users",
	domain.EntityTeam:            "teams",
	domain.EntityPipelineService: "services/pipelineServices",
	domain.EntityDatabaseService: "services/databaseServices",
	domain.EntityDatabase:        "databases",
	domain.EntityTable:           "tables",
	domain.EntityPipeline:        "pipelines",
	domain.EntityGlossary:        "glossaries",
	domain.EntityGlossaryTerm:    "glossaryTerms",
}

// Catalog wires one repository per entity type to a shared store
type Catalog struct {
	store   repository.Store
	bus     *EventBus
	logger  *zap.Logger
	metrics *metrics.Collector
	opts    Options
	now     func() time.Time

	Users            *Repository[*domain.User]
	Teams            *Repository[*domain.Team]
	PipelineServices *Repository[*domain.PipelineService]
	DatabaseServices *Repository[*domain.DatabaseService]
	Databases        *Repository[*domain.Database]
	Tables           *Repository[*domain.Table]
	Pipelines        *Repository[*domain.Pipeline]
	Glossaries       *Repository[*domain.Glossary]
	GlossaryTerms    *Repository[*domain.GlossaryTerm]

	Tags   *TagService
	Tokens *TokenService
}

// NewCatalog creates the catalog. bus and collector may be nil.
func NewCatalog(store repository.Store, bus *EventBus, logger *zap.Logger, collector *metrics.Collector, opts Options) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = NewEventBus()
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxLimit
	}

	c := &Catalog{
		store:   store,
		bus:     bus,
		logger:  logger,
		metrics: collector,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
	c.Tags = &TagService{c: c}
	c.Tokens = &TokenService{c: c}

	c.Users = newRepository[*domain.User](c, domain.EntityUser, domain.UserFields,
		func() *domain.User { return &domain.User{} }, &userHooks{c: c})
	c.Teams = newRepository[*domain.Team](c, domain.EntityTeam, domain.TeamFields,
		func() *domain.Team { return &domain.Team{} }, &teamHooks{c: c})
	c.PipelineServices = newRepository[*domain.PipelineService](c, domain.EntityPipelineService, domain.ServiceFields,
		func() *domain.PipelineService { return &domain.PipelineService{} }, &pipelineServiceHooks{})
	c.DatabaseServices = newRepository[*domain.DatabaseService](c, domain.EntityDatabaseService, domain.ServiceFields,
		func() *domain.DatabaseService { return &domain.DatabaseService{} }, &databaseServiceHooks{})
	c.Databases = newRepository[*domain.Database](c, domain.EntityDatabase, domain.DatabaseFields,
		func() *domain.Database { return &domain.Database{} }, &databaseHooks{c: c})
	c.Tables = newRepository[*domain.Table](c, domain.EntityTable, domain.TableFields,
		func() *domain.Table { return &domain.Table{} }, &tableHooks{c: c})
	c.Pipelines = newRepository[*domain.Pipeline](c, domain.EntityPipeline, domain.PipelineFields,
		func() *domain.Pipeline { return &domain.Pipeline{} }, &pipelineHooks{c: c})
	c.Glossaries = newRepository[*domain.Glossary](c, domain.EntityGlossary, domain.GlossaryFields,
		func() *domain.Glossary { return &domain.Glossary{} }, &glossaryHooks{})
	c.GlossaryTerms = newRepository[*domain.GlossaryTerm](c, domain.EntityGlossaryTerm, domain.GlossaryFields,
		func() *domain.GlossaryTerm { return &domain.GlossaryTerm{} }, &glossaryTermHooks{c: c})

	// user and team FQNs are their bare names, so e-mail style names are fine
	c.Users.dottedNames = true
	c.Teams.dottedNames = true

	c.Databases.filterParam = "service"
	c.Pipelines.filterParam = "service"
	c.Tables.filterParam = "database"
	c.GlossaryTerms.filterParam = "glossary"

	return c
}

// EventBus returns the bus change events are published on
func (c *Catalog) EventBus() *EventBus {
	return c.bus
}

// Limits returns the default and maximum page size
func (c *Catalog) Limits() (int, int) {
	return c.opts.DefaultLimit, c.opts.MaxLimit
}

// ListEvents returns stored change events matching filter
func (c *Catalog) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.ChangeEvent, error) {
	var events []domain.ChangeEvent
	err := c.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		events, err = tx.Events().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, apperror.Database("list events", err)
	}
	return events, nil
}

// Snapshot exports every entity with all of its fields
func (c *Catalog) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{GeneratedAt: c.now()}
	var err error

	if snap.Users, err = c.Users.All(ctx); err != nil {
		return nil, err
	}
	if snap.Teams, err = c.Teams.All(ctx); err != nil {
		return nil, err
	}
	if snap.TagCategories, err = c.Tags.ListCategories(ctx); err != nil {
		return nil, err
	}
	if snap.PipelineServices, err = c.PipelineServices.All(ctx); err != nil {
		return nil, err
	}
	if snap.DatabaseServices, err = c.DatabaseServices.All(ctx); err != nil {
		return nil, err
	}
	if snap.Databases, err = c.Databases.All(ctx); err != nil {
		return nil, err
	}
	if snap.Tables, err = c.Tables.All(ctx); err != nil {
		return nil, err
	}
	if snap.Pipelines, err = c.Pipelines.All(ctx); err != nil {
		return nil, err
	}
	if snap.Glossaries, err = c.Glossaries.All(ctx); err != nil {
		return nil, err
	}
	if snap.GlossaryTerms, err = c.GlossaryTerms.All(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

func (c *Catalog) href(entityType string, id uuid.UUID) string {
	return fmt.Sprintf("%s/api/v1/%s/%s", c.opts.BaseURL, collections[entityType], id)
}

// publish fans committed events out to subscribers
func (c *Catalog) publish(events []*domain.ChangeEvent) {
	for _, event := range events {
		c.metrics.ObserveEvent(event.EntityType, string(event.EventType))
		c.bus.Publish(*event)
	}
}

// newEvent builds an event for the entity's current state
func (c *Catalog) newEvent(ctx context.Context, eventType domain.EventType, entityType string, h *domain.Base) *domain.ChangeEvent {
	return &domain.ChangeEvent{
		EventType:       eventType,
		EntityType:      entityType,
		EntityID:        h.ID,
		PreviousVersion: h.Version,
		CurrentVersion:  h.Version,
		UserName:        auth.Principal(ctx),
		DateTime:        c.now(),
	}
}

// referenceHeader is the part of a stored entity a reference needs
type referenceHeader struct {
	Name               string `json:"name"`
	DisplayName        string `json:"displayName"`
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Description        string `json:"description"`
}

// entityReference loads a reference to the entity with the given type and id
func (c *Catalog) entityReference(ctx context.Context, tx repository.Tx, entityType string, id uuid.UUID) (*domain.EntityReference, error) {
	row, err := tx.Entities().FindByID(ctx, entityType, id)
	if err != nil {
		return nil, apperror.Database("find "+entityType, err)
	}
	if row == nil {
		return nil, apperror.NotFound(entityType, id)
	}
	return c.rowReference(entityType, row)
}

func (c *Catalog) rowReference(entityType string, row *repository.EntityRow) (*domain.EntityReference, error) {
	var head referenceHeader
	if err := json.Unmarshal(row.JSON, &head); err != nil {
		return nil, apperror.Internal("failed to decode "+entityType, err)
	}
	return &domain.EntityReference{
		ID:          row.ID,
		Type:        entityType,
		Name:        row.FQN,
		DisplayName: head.DisplayName,
		Description: head.Description,
		Href:        c.href(entityType, row.ID),
	}, nil
}

// edgeReferences resolves the far end of each edge. from selects the edge's
// source entity; otherwise the target is resolved.
func (c *Catalog) edgeReferences(ctx context.Context, tx repository.Tx, edges []domain.Edge, from bool) ([]domain.EntityReference, error) {
	var refs []domain.EntityReference
	for _, edge := range edges {
		entityType, id := edge.ToEntity, edge.ToID
		if from {
			entityType, id = edge.FromEntity, edge.FromID
		}
		ref, err := c.entityReference(ctx, tx, entityType, id)
		if err != nil {
			if apperror.IsNotFound(err) {
				// dangling edge, the other side was deleted
				continue
			}
			return nil, err
		}
		refs = append(refs, *ref)
	}
	return refs, nil
}

// resolveReference validates a caller supplied reference to a container such
// as a service, database or glossary and returns the stored reference. The
// reference is looked up by id, or by its name when no id is given.
func (c *Catalog) resolveReference(ctx context.Context, tx repository.Tx, field string, ref *domain.EntityReference, expected string) (*domain.EntityReference, error) {
	if ref == nil {
		return nil, apperror.Validation("%s must not be null", field)
	}
	if ref.Type != "" && ref.Type != expected {
		return nil, apperror.Validation("Invalid %s type %s", field, ref.Type)
	}
	if ref.ID != uuid.Nil {
		return c.entityReference(ctx, tx, expected, ref.ID)
	}
	if ref.Name == "" {
		return nil, apperror.Validation("%s must have an id or a name", field)
	}
	row, err := tx.Entities().FindByName(ctx, expected, ref.Name)
	if err != nil {
		return nil, apperror.Database("find "+expected, err)
	}
	if row == nil {
		return nil, apperror.NotFound(expected, ref.Name)
	}
	return c.rowReference(expected, row)
}

// resolveOwner validates an owner reference; owners are users or teams
func (c *Catalog) resolveOwner(ctx context.Context, tx repository.Tx, owner *domain.EntityReference) (*domain.EntityReference, error) {
	if owner == nil {
		return nil, nil
	}
	if owner.Type != domain.EntityUser && owner.Type != domain.EntityTeam {
		return nil, apperror.Validation("Invalid ownerType %s", owner.Type)
	}
	return c.entityReference(ctx, tx, owner.Type, owner.ID)
}

// checkName rejects names containing the FQN separator. A dotted name
// would make "x" + "a.b" and "x.a" + "b" the same FQN.
func checkName(kind, name string) error {
	if strings.Contains(name, domain.FQNSeparator) {
		return apperror.Validation("%s name %q must not contain %q", kind, name, domain.FQNSeparator)
	}
	return nil
}

// storeError maps a DAO error to an application error
func storeError(op string, err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperror.Conflict("Entity already exists")
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Database(op, err)
}
