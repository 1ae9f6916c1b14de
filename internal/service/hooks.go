package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"metacatalog/internal/apperror"
	"metacatalog/internal/domain"
	"metacatalog/internal/repository"
)

// hooks carries the entity specific parts of a Repository
type hooks[T domain.Entity] interface {
	// prepare derives the FQN and resolves container references
	prepare(ctx context.Context, tx repository.Tx, e T) error
	// setFields hydrates entity specific relations
	setFields(ctx context.Context, tx repository.Tx, e T, fields domain.Fields) error
	// strip clears attributes kept outside the stored JSON and returns a
	// func putting them back
	strip(e T) func()
	storeRelationships(ctx context.Context, tx repository.Tx, e T) error
	restorePatchAttributes(orig, patched T)
	// mergeForPut carries stored attributes into a PUT request
	mergeForPut(stored, incoming T)
	updateSpecific(ctx context.Context, tx repository.Tx, u *updater, orig, upd T) error
	onDelete(ctx context.Context, tx repository.Tx, e T) error
}

// noHooks is embedded by entity hooks to pick up the default behavior
type noHooks[T domain.Entity] struct{}

func (noHooks[T]) prepare(_ context.Context, _ repository.Tx, e T) error {
	h := e.Header()
	h.FullyQualifiedName = h.Name
	return nil
}

func (noHooks[T]) setFields(context.Context, repository.Tx, T, domain.Fields) error { return nil }

func (noHooks[T]) strip(T) func() { return func() {} }

func (noHooks[T]) storeRelationships(context.Context, repository.Tx, T) error { return nil }

func (noHooks[T]) restorePatchAttributes(T, T) {}

func (noHooks[T]) mergeForPut(T, T) {}

func (noHooks[T]) updateSpecific(context.Context, repository.Tx, *updater, T, T) error { return nil }

func (noHooks[T]) onDelete(context.Context, repository.Tx, T) error { return nil }

// containedIn stores the CONTAINS edge from a container to e
func containedIn(ctx context.Context, tx repository.Tx, container *domain.EntityReference, e *domain.EntityReference) error {
	if container == nil {
		return nil
	}
	return tx.Relationships().Insert(ctx, domain.NewEdge(container, e, domain.RelationContains))
}

// containerOf returns the entity containing id, or nil
func (c *Catalog) containerOf(ctx context.Context, tx repository.Tx, id uuid.UUID, containerType string) (*domain.EntityReference, error) {
	edges, err := tx.Relationships().FindFrom(ctx, id, domain.RelationContains, containerType)
	if err != nil {
		return nil, err
	}
	refs, err := c.edgeReferences(ctx, tx, edges, true)
	if err != nil || len(refs) == 0 {
		return nil, err
	}
	return &refs[0], nil
}

// contained returns references to the entities contained in id
func (c *Catalog) contained(ctx context.Context, tx repository.Tx, id uuid.UUID, childType string) ([]domain.EntityReference, error) {
	edges, err := tx.Relationships().FindTo(ctx, id, domain.RelationContains, childType)
	if err != nil {
		return nil, err
	}
	return c.edgeReferences(ctx, tx, edges, false)
}

// loadEntity decodes the stored entity with the given type and id
func loadEntity[E any](ctx context.Context, tx repository.Tx, entityType string, id uuid.UUID) (*E, error) {
	row, err := tx.Entities().FindByID(ctx, entityType, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperror.NotFound(entityType, id)
	}
	var e E
	if err := json.Unmarshal(row.JSON, &e); err != nil {
		return nil, apperror.Internal("failed to decode "+entityType, err)
	}
	return &e, nil
}
