package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"metacatalog/internal/apperror"
	"metacatalog/internal/auth"
	"metacatalog/internal/domain"
	"metacatalog/internal/repository"
)

// PatchType selects how a PATCH body is interpreted
type PatchType int

const (
	// MergePatch is an RFC 7386 JSON merge patch
	MergePatch PatchType = iota
	// JSONPatch is an RFC 6902 JSON patch
	JSONPatch
)

// ListParams selects one page of a collection
type ListParams struct {
	// Container restricts the listing to entities nested under this FQN
	Container string
	Fields    string
	Limit     int
	Before    string
	After     string
}

// Repository implements CRUD, versioning and change tracking for one entity
// type. Entity specific behavior is supplied by its hooks.
type Repository[T domain.Entity] struct {
	c          *Catalog
	entityType string
	allowed    []string
	newEntity  func() T
	hooks      hooks[T]

	// filterParam names the list query parameter holding the container FQN
	filterParam string
	// dottedNames allows the FQN separator in names; only safe for entity
	// types that neither contain nor are contained by others
	dottedNames bool
}

func newRepository[T domain.Entity](c *Catalog, entityType string, allowed []string, newEntity func() T, h hooks[T]) *Repository[T] {
	return &Repository[T]{
		c:          c,
		entityType: entityType,
		allowed:    allowed,
		newEntity:  newEntity,
		hooks:      h,
	}
}

// EntityType returns the entity type name
func (r *Repository[T]) EntityType() string {
	return r.entityType
}

// FilterParam returns the list query parameter naming the container, if any
func (r *Repository[T]) FilterParam() string {
	return r.filterParam
}

// Get returns the entity with the requested optional fields hydrated
func (r *Repository[T]) Get(ctx context.Context, id uuid.UUID, fieldsParam string) (T, error) {
	var result T
	fields, err := r.parseFields(fieldsParam)
	if err != nil {
		return result, err
	}

	err = r.run(ctx, "get", func(tx repository.Tx) error {
		e, err := r.find(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := r.setFields(ctx, tx, e, fields); err != nil {
			return err
		}
		result = e
		return nil
	})
	return result, err
}

// GetByName returns the entity with the given FQN
func (r *Repository[T]) GetByName(ctx context.Context, fqn string, fieldsParam string) (T, error) {
	var result T
	fields, err := r.parseFields(fieldsParam)
	if err != nil {
		return result, err
	}

	err = r.run(ctx, "getByName", func(tx repository.Tx) error {
		row, err := tx.Entities().FindByName(ctx, r.entityType, fqn)
		if err != nil {
			return err
		}
		if row == nil {
			return apperror.NotFound(r.entityType, fqn)
		}
		e, err := r.decode(row)
		if err != nil {
			return err
		}
		if err := r.setFields(ctx, tx, e, fields); err != nil {
			return err
		}
		result = e
		return nil
	})
	return result, err
}

// List returns one page of entities ordered by FQN
func (r *Repository[T]) List(ctx context.Context, params ListParams) (*domain.ResultList[T], error) {
	fields, err := r.parseFields(params.Fields)
	if err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit == 0 {
		limit = r.c.opts.DefaultLimit
	}
	if limit < 1 || limit > r.c.opts.MaxLimit {
		return nil, apperror.Validation("limit must be between 1 and %d", r.c.opts.MaxLimit)
	}
	if params.Before != "" && params.After != "" {
		return nil, apperror.Validation("Only one of before or after query parameter allowed")
	}
	before, err := decodeCursor(params.Before)
	if err != nil {
		return nil, err
	}
	after, err := decodeCursor(params.After)
	if err != nil {
		return nil, err
	}

	prefix := ""
	if params.Container != "" {
		prefix = domain.FQNPrefix(params.Container)
	}

	result := &domain.ResultList[T]{Data: []T{}}
	err = r.run(ctx, "list", func(tx repository.Tx) error {
		total, err := tx.Entities().Count(ctx, r.entityType, prefix)
		if err != nil {
			return err
		}
		result.Paging.Total = total

		var rows []repository.EntityRow
		if params.Before != "" {
			rows, err = tx.Entities().ListBefore(ctx, r.entityType, prefix, before, limit+1)
			if err != nil {
				return err
			}
			// an extra leading row means there is a previous page
			if len(rows) > limit {
				rows = rows[1:]
				result.Paging.Before = encodeCursor(rows[0].FQN)
			}
			if len(rows) > 0 {
				result.Paging.After = encodeCursor(rows[len(rows)-1].FQN)
			}
		} else {
			rows, err = tx.Entities().ListAfter(ctx, r.entityType, prefix, after, limit+1)
			if err != nil {
				return err
			}
			if params.After != "" && len(rows) > 0 {
				result.Paging.Before = encodeCursor(rows[0].FQN)
			}
			if len(rows) > limit {
				rows = rows[:limit]
				result.Paging.After = encodeCursor(rows[limit-1].FQN)
			}
		}

		for i := range rows {
			e, err := r.decode(&rows[i])
			if err != nil {
				return err
			}
			if err := r.setFields(ctx, tx, e, fields); err != nil {
				return err
			}
			result.Data = append(result.Data, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// All returns every entity of the type with all fields hydrated
func (r *Repository[T]) All(ctx context.Context) ([]T, error) {
	all := []T{}
	err := r.run(ctx, "all", func(tx repository.Tx) error {
		after := ""
		for {
			rows, err := tx.Entities().ListAfter(ctx, r.entityType, "", after, r.c.opts.MaxLimit)
			if err != nil {
				return err
			}
			for i := range rows {
				e, err := r.decode(&rows[i])
				if err != nil {
					return err
				}
				if err := r.setFields(ctx, tx, e, r.allFields()); err != nil {
					return err
				}
				all = append(all, e)
			}
			if len(rows) < r.c.opts.MaxLimit {
				return nil
			}
			after = rows[len(rows)-1].FQN
		}
	})
	return all, err
}

// Create stores a new entity; a duplicate FQN is a conflict
func (r *Repository[T]) Create(ctx context.Context, e T) (T, error) {
	var event *domain.ChangeEvent
	err := r.run(ctx, "create", func(tx repository.Tx) error {
		if err := r.prepare(ctx, tx, e); err != nil {
			return err
		}
		existing, err := tx.Entities().FindByName(ctx, r.entityType, e.Header().FullyQualifiedName)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Conflict("Entity already exists")
		}
		event, err = r.createInTx(ctx, tx, e)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}

	r.c.publish([]*domain.ChangeEvent{event})
	r.c.logger.Info("entity created",
		zap.String("entity", r.entityType),
		zap.String("fqn", e.Header().FullyQualifiedName),
		zap.String("id", e.Header().ID.String()))
	return e, nil
}

// CreateOrUpdate creates the entity when its FQN is unknown and updates the
// stored one otherwise. created reports which happened.
func (r *Repository[T]) CreateOrUpdate(ctx context.Context, e T) (result T, created bool, err error) {
	var event *domain.ChangeEvent
	err = r.run(ctx, "createOrUpdate", func(tx repository.Tx) error {
		if err := r.prepare(ctx, tx, e); err != nil {
			return err
		}
		row, err := tx.Entities().FindByName(ctx, r.entityType, e.Header().FullyQualifiedName)
		if err != nil {
			return err
		}
		if row == nil {
			created = true
			event, err = r.createInTx(ctx, tx, e)
			return err
		}

		orig, err := r.decode(row)
		if err != nil {
			return err
		}
		if err := r.setFields(ctx, tx, orig, r.allFields()); err != nil {
			return err
		}
		r.mergeForPut(orig, e)
		event, err = r.update(ctx, tx, orig, e)
		return err
	})
	if err != nil {
		return result, false, err
	}

	if event != nil {
		r.c.publish([]*domain.ChangeEvent{event})
		r.c.logger.Info("entity upserted",
			zap.String("entity", r.entityType),
			zap.String("fqn", e.Header().FullyQualifiedName),
			zap.Bool("created", created),
			zap.Float64("version", e.Header().Version))
	}
	return e, created, nil
}

// Patch applies a merge patch or JSON patch to the stored entity
func (r *Repository[T]) Patch(ctx context.Context, id uuid.UUID, patchType PatchType, patch []byte) (T, error) {
	var (
		result T
		event  *domain.ChangeEvent
	)
	err := r.run(ctx, "patch", func(tx repository.Tx) error {
		orig, err := r.find(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := r.setFields(ctx, tx, orig, r.allFields()); err != nil {
			return err
		}

		doc, err := json.Marshal(orig)
		if err != nil {
			return apperror.Internal("failed to encode "+r.entityType, err)
		}
		patched, err := applyPatch(patchType, doc, patch)
		if err != nil {
			return err
		}

		upd := r.newEntity()
		if err := json.Unmarshal(patched, upd); err != nil {
			return apperror.Validation("Invalid patched %s: %v", r.entityType, err)
		}
		r.restorePatchAttributes(orig, upd)
		if err := r.prepare(ctx, tx, upd); err != nil {
			return err
		}

		event, err = r.update(ctx, tx, orig, upd)
		if err != nil {
			return err
		}
		result = upd
		return nil
	})
	if err != nil {
		return result, err
	}

	if event != nil {
		r.c.publish([]*domain.ChangeEvent{event})
		r.c.logger.Info("entity patched",
			zap.String("entity", r.entityType),
			zap.String("fqn", result.Header().FullyQualifiedName),
			zap.Float64("version", result.Header().Version))
	}
	return result, nil
}

// Delete removes the entity and everything hanging off it. Containers with
// children cannot be deleted.
func (r *Repository[T]) Delete(ctx context.Context, id uuid.UUID) (T, error) {
	var (
		result T
		event  *domain.ChangeEvent
	)
	err := r.run(ctx, "delete", func(tx repository.Tx) error {
		e, err := r.find(ctx, tx, id)
		if err != nil {
			return err
		}

		children, err := tx.Relationships().FindTo(ctx, id, domain.RelationContains, "")
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return apperror.Conflict("%s is not empty", domain.Title(r.entityType))
		}

		if err := r.hooks.onDelete(ctx, tx, e); err != nil {
			return err
		}

		h := e.Header()
		if err := tx.Relationships().DeleteAll(ctx, id); err != nil {
			return err
		}
		if err := tx.Tags().DeleteTags(ctx, h.FullyQualifiedName); err != nil {
			return err
		}
		if err := tx.Extensions().DeleteAll(ctx, id); err != nil {
			return err
		}
		if err := tx.Entities().Delete(ctx, r.entityType, id); err != nil {
			return err
		}

		h.Href = r.c.href(r.entityType, id)
		event = r.c.newEvent(ctx, domain.EventEntityDeleted, r.entityType, h)
		if err := tx.Events().Insert(ctx, event); err != nil {
			return err
		}
		result = e
		return nil
	})
	if err != nil {
		return result, err
	}

	r.c.publish([]*domain.ChangeEvent{event})
	r.c.logger.Info("entity deleted",
		zap.String("entity", r.entityType),
		zap.String("fqn", result.Header().FullyQualifiedName))
	return result, nil
}

// ListVersions returns the current entity followed by its stored snapshots,
// latest first
func (r *Repository[T]) ListVersions(ctx context.Context, id uuid.UUID) (*domain.EntityHistory, error) {
	history := &domain.EntityHistory{EntityType: r.entityType}
	err := r.run(ctx, "listVersions", func(tx repository.Tx) error {
		e, err := r.find(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := r.setFields(ctx, tx, e, r.allFields()); err != nil {
			return err
		}
		current, err := json.Marshal(e)
		if err != nil {
			return apperror.Internal("failed to encode "+r.entityType, err)
		}

		extensions, err := tx.Extensions().List(ctx, id, versionPrefix(r.entityType))
		if err != nil {
			return err
		}
		prefix := versionPrefix(r.entityType)
		sort.Slice(extensions, func(i, j int) bool {
			return extensionVersion(extensions[i].Name, prefix) > extensionVersion(extensions[j].Name, prefix)
		})

		history.Versions = append(history.Versions, json.RawMessage(current))
		for _, ext := range extensions {
			history.Versions = append(history.Versions, json.RawMessage(ext.JSON))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

// GetVersion returns the entity as it was at the given version
func (r *Repository[T]) GetVersion(ctx context.Context, id uuid.UUID, version string) (T, error) {
	var result T
	v, err := strconv.ParseFloat(version, 64)
	if err != nil {
		return result, apperror.Validation("Invalid version %s", version)
	}

	err = r.run(ctx, "getVersion", func(tx repository.Tx) error {
		e, err := r.find(ctx, tx, id)
		if err != nil {
			return err
		}
		if e.Header().Version == v {
			if err := r.setFields(ctx, tx, e, r.allFields()); err != nil {
				return err
			}
			result = e
			return nil
		}

		data, err := tx.Extensions().Get(ctx, id, versionExtension(r.entityType, v))
		if err != nil {
			return err
		}
		if data == nil {
			return apperror.NotFoundf("%s instance for %s and version %s not found", r.entityType, id, version)
		}
		snapshot := r.newEntity()
		if err := json.Unmarshal(data, snapshot); err != nil {
			return apperror.Internal("failed to decode "+r.entityType+" version", err)
		}
		result = snapshot
		return nil
	})
	return result, err
}

// AddFollower makes the user follow the entity. The returned event is nil
// when the user already follows it.
func (r *Repository[T]) AddFollower(ctx context.Context, id, userID uuid.UUID) (*domain.ChangeEvent, error) {
	return r.changeFollower(ctx, "addFollower", id, userID, true)
}

// DeleteFollower stops the user following the entity. The returned event is
// nil when the user was not following it.
func (r *Repository[T]) DeleteFollower(ctx context.Context, id, userID uuid.UUID) (*domain.ChangeEvent, error) {
	return r.changeFollower(ctx, "deleteFollower", id, userID, false)
}

func (r *Repository[T]) changeFollower(ctx context.Context, op string, id, userID uuid.UUID, follow bool) (*domain.ChangeEvent, error) {
	var event *domain.ChangeEvent
	err := r.run(ctx, op, func(tx repository.Tx) error {
		e, err := r.find(ctx, tx, id)
		if err != nil {
			return err
		}
		user, err := r.c.entityReference(ctx, tx, domain.EntityUser, userID)
		if err != nil {
			return err
		}

		edges, err := tx.Relationships().FindFrom(ctx, id, domain.RelationFollows, domain.EntityUser)
		if err != nil {
			return err
		}
		following := false
		for _, edge := range edges {
			if edge.FromID == userID {
				following = true
				break
			}
		}
		if following == follow {
			return nil
		}

		h := e.Header()
		h.Href = r.c.href(r.entityType, id)
		change := domain.NewChangeDescription(h.Version)
		fieldChange := domain.FieldChange{Name: domain.FieldFollowers}
		if follow {
			err = tx.Relationships().Insert(ctx, domain.NewEdge(user, h.Reference(r.entityType), domain.RelationFollows))
			fieldChange.NewValue = []domain.EntityReference{*user}
			change.FieldsAdded = append(change.FieldsAdded, fieldChange)
		} else {
			err = tx.Relationships().Delete(ctx, userID, id, domain.RelationFollows)
			fieldChange.OldValue = []domain.EntityReference{*user}
			change.FieldsDeleted = append(change.FieldsDeleted, fieldChange)
		}
		if err != nil {
			return err
		}

		event = r.c.newEvent(ctx, domain.EventEntityUpdated, r.entityType, h)
		event.ChangeDescription = change
		return tx.Events().Insert(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	if event != nil {
		r.c.publish([]*domain.ChangeEvent{event})
	}
	return event, nil
}

// run executes fn in a transaction and records the outcome
func (r *Repository[T]) run(ctx context.Context, op string, fn func(tx repository.Tx) error) error {
	start := time.Now()
	err := r.c.store.InTx(ctx, fn)
	if err != nil {
		err = storeError(r.entityType+" "+op, err)
	}
	r.c.metrics.ObserveOperation(r.entityType, op, err, time.Since(start))
	if err != nil && apperror.StatusCode(err) >= 500 {
		r.c.logger.Error("entity operation failed",
			zap.String("entity", r.entityType),
			zap.String("operation", op),
			zap.Error(err))
	}
	return err
}

func (r *Repository[T]) parseFields(param string) (domain.Fields, error) {
	fields, err := domain.ParseFields(r.allowed, param)
	if err != nil {
		return nil, apperror.Validation("%s", err.Error())
	}
	return fields, nil
}

func (r *Repository[T]) allFields() domain.Fields {
	return domain.AllFields(r.allowed)
}

func (r *Repository[T]) supports(field string) bool {
	for _, f := range r.allowed {
		if f == field {
			return true
		}
	}
	return false
}

func (r *Repository[T]) find(ctx context.Context, tx repository.Tx, id uuid.UUID) (T, error) {
	row, err := tx.Entities().FindByID(ctx, r.entityType, id)
	if err != nil {
		var zero T
		return zero, err
	}
	if row == nil {
		var zero T
		return zero, apperror.NotFound(r.entityType, id)
	}
	return r.decode(row)
}

func (r *Repository[T]) decode(row *repository.EntityRow) (T, error) {
	e := r.newEntity()
	if err := json.Unmarshal(row.JSON, e); err != nil {
		var zero T
		return zero, apperror.Internal("failed to decode "+r.entityType, err)
	}
	return e, nil
}

// setFields hydrates the requested relations. Relations that were not asked
// for are cleared.
func (r *Repository[T]) setFields(ctx context.Context, tx repository.Tx, e T, fields domain.Fields) error {
	h := e.Header()
	h.Href = r.c.href(r.entityType, h.ID)
	h.Owner, h.Followers, h.Tags = nil, nil, nil

	if fields.Contains(domain.FieldOwner) {
		edges, err := tx.Relationships().FindFrom(ctx, h.ID, domain.RelationOwns, "")
		if err != nil {
			return err
		}
		owners, err := r.c.edgeReferences(ctx, tx, edges, true)
		if err != nil {
			return err
		}
		if len(owners) > 0 {
			h.Owner = &owners[0]
		}
	}
	if fields.Contains(domain.FieldFollowers) {
		edges, err := tx.Relationships().FindFrom(ctx, h.ID, domain.RelationFollows, domain.EntityUser)
		if err != nil {
			return err
		}
		if h.Followers, err = r.c.edgeReferences(ctx, tx, edges, true); err != nil {
			return err
		}
	}
	if fields.Contains(domain.FieldTags) {
		tags, err := r.c.Tags.getTags(ctx, tx, h.FullyQualifiedName)
		if err != nil {
			return err
		}
		h.Tags = tags
	}
	return r.hooks.setFields(ctx, tx, e, fields)
}

// prepare derives the FQN and validates the references the caller supplied
func (r *Repository[T]) prepare(ctx context.Context, tx repository.Tx, e T) error {
	if !r.dottedNames {
		if err := checkName(r.entityType, e.Header().Name); err != nil {
			return err
		}
	}
	if err := r.hooks.prepare(ctx, tx, e); err != nil {
		return err
	}

	h := e.Header()
	if !r.supports(domain.FieldOwner) {
		h.Owner = nil
	} else {
		owner, err := r.c.resolveOwner(ctx, tx, h.Owner)
		if err != nil {
			return err
		}
		h.Owner = owner
	}

	if !r.supports(domain.FieldTags) {
		h.Tags = nil
		return nil
	}
	tags, err := r.c.Tags.withDerived(ctx, tx, h.Tags)
	if err != nil {
		return err
	}
	h.Tags = tags
	return nil
}

func (r *Repository[T]) createInTx(ctx context.Context, tx repository.Tx, e T) (*domain.ChangeEvent, error) {
	h := e.Header()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	h.Version = domain.InitialVersion
	h.UpdatedBy = auth.Principal(ctx)
	h.UpdatedAt = r.c.now()
	h.ChangeDescription = nil
	h.Followers = nil
	h.Href = r.c.href(r.entityType, h.ID)

	if err := r.store(ctx, tx, e, false); err != nil {
		return nil, err
	}
	if err := r.storeRelationships(ctx, tx, e); err != nil {
		return nil, err
	}
	if err := r.reloadTags(ctx, tx, e); err != nil {
		return nil, err
	}

	event := r.c.newEvent(ctx, domain.EventEntityCreated, r.entityType, h)
	event.Entity = e
	if err := tx.Events().Insert(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// store persists the entity JSON without the relations kept in side tables
func (r *Repository[T]) store(ctx context.Context, tx repository.Tx, e T, update bool) error {
	h := e.Header()
	owner, tags, followers, href := h.Owner, h.Tags, h.Followers, h.Href
	h.Owner, h.Tags, h.Followers, h.Href = nil, nil, nil, ""
	restore := r.hooks.strip(e)

	data, err := json.Marshal(e)

	h.Owner, h.Tags, h.Followers, h.Href = owner, tags, followers, href
	restore()
	if err != nil {
		return apperror.Internal("failed to encode "+r.entityType, err)
	}

	row := repository.EntityRow{ID: h.ID, FQN: h.FullyQualifiedName, JSON: data}
	if update {
		return tx.Entities().Update(ctx, r.entityType, row)
	}
	return tx.Entities().Insert(ctx, r.entityType, row)
}

func (r *Repository[T]) storeRelationships(ctx context.Context, tx repository.Tx, e T) error {
	h := e.Header()
	if h.Owner != nil {
		if err := tx.Relationships().Insert(ctx, domain.NewEdge(h.Owner, h.Reference(r.entityType), domain.RelationOwns)); err != nil {
			return err
		}
	}
	if err := r.c.Tags.applyTags(ctx, tx, h.Tags, h.FullyQualifiedName); err != nil {
		return err
	}
	return r.hooks.storeRelationships(ctx, tx, e)
}

// reloadTags re-reads the entity tags so derived labels show up
func (r *Repository[T]) reloadTags(ctx context.Context, tx repository.Tx, e T) error {
	if !r.supports(domain.FieldTags) {
		return nil
	}
	h := e.Header()
	tags, err := r.c.Tags.getTags(ctx, tx, h.FullyQualifiedName)
	if err != nil {
		return err
	}
	h.Tags = tags
	return nil
}

// mergeForPut carries stored attributes a PUT must not drop
func (r *Repository[T]) mergeForPut(stored, incoming T) {
	sh, h := stored.Header(), incoming.Header()
	h.ID = sh.ID
	if sh.Description != "" {
		h.Description = sh.Description
	}
	if h.Owner == nil {
		h.Owner = sh.Owner
	}
	h.Tags = domain.MergeTagLabels(sh.Tags, h.Tags)
	h.Followers = sh.Followers
	r.hooks.mergeForPut(stored, incoming)
}

// restorePatchAttributes puts back the attributes a patch may not change
func (r *Repository[T]) restorePatchAttributes(orig, patched T) {
	oh, h := orig.Header(), patched.Header()
	h.ID = oh.ID
	h.Name = oh.Name
	h.FullyQualifiedName = oh.FullyQualifiedName
	h.Version = oh.Version
	h.ChangeDescription = oh.ChangeDescription
	h.Href = oh.Href
	h.Followers = oh.Followers
	h.UpdatedAt = oh.UpdatedAt
	h.UpdatedBy = oh.UpdatedBy
	r.hooks.restorePatchAttributes(orig, patched)
}

// update diffs orig against upd, stores upd and returns the change event.
// The event is nil when nothing changed.
func (r *Repository[T]) update(ctx context.Context, tx repository.Tx, orig, upd T) (*domain.ChangeEvent, error) {
	oh, h := orig.Header(), upd.Header()
	h.ID = oh.ID
	h.FullyQualifiedName = oh.FullyQualifiedName
	h.Href = oh.Href
	h.Followers = oh.Followers

	u := newUpdater(oh.Version)
	u.recordChange("description", oh.Description, h.Description)
	u.recordChange("displayName", oh.DisplayName, h.DisplayName)
	if err := r.updateOwner(ctx, tx, u, oh, h); err != nil {
		return nil, err
	}
	if err := r.updateTags(ctx, tx, u, oh, h); err != nil {
		return nil, err
	}
	if err := r.hooks.updateSpecific(ctx, tx, u, orig, upd); err != nil {
		return nil, err
	}

	if !u.changed() {
		h.Version = oh.Version
		h.ChangeDescription = oh.ChangeDescription
		h.UpdatedAt = oh.UpdatedAt
		h.UpdatedBy = oh.UpdatedBy
		return nil, nil
	}

	snapshot, err := json.Marshal(orig)
	if err != nil {
		return nil, apperror.Internal("failed to encode "+r.entityType, err)
	}
	if err := tx.Extensions().Insert(ctx, oh.ID, versionExtension(r.entityType, oh.Version), snapshot); err != nil {
		return nil, err
	}

	h.Version = u.nextVersion(oh.Version)
	h.ChangeDescription = u.change
	h.UpdatedBy = auth.Principal(ctx)
	h.UpdatedAt = r.c.now()
	if err := r.store(ctx, tx, upd, true); err != nil {
		return nil, err
	}
	if err := r.reloadTags(ctx, tx, upd); err != nil {
		return nil, err
	}

	event := r.c.newEvent(ctx, domain.EventEntityUpdated, r.entityType, h)
	event.PreviousVersion = oh.Version
	event.ChangeDescription = u.change
	if err := tx.Events().Insert(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (r *Repository[T]) updateOwner(ctx context.Context, tx repository.Tx, u *updater, oh, h *domain.Base) error {
	if sameReference(oh.Owner, h.Owner) {
		return nil
	}
	u.record(domain.FieldOwner, oh.Owner, h.Owner, false)
	// an entity has at most one owner
	if err := tx.Relationships().DeleteTo(ctx, oh.ID, domain.RelationOwns, ""); err != nil {
		return err
	}
	if h.Owner != nil {
		return tx.Relationships().Insert(ctx, domain.NewEdge(h.Owner, h.Reference(r.entityType), domain.RelationOwns))
	}
	return nil
}

func (r *Repository[T]) updateTags(ctx context.Context, tx repository.Tx, u *updater, oh, h *domain.Base) error {
	if !r.supports(domain.FieldTags) {
		return nil
	}
	added, deleted := recordListChange(u, domain.FieldTags, oh.Tags, h.Tags, tagLabelMatch)
	if len(added)+len(deleted) == 0 {
		return nil
	}
	if err := tx.Tags().DeleteTags(ctx, h.FullyQualifiedName); err != nil {
		return err
	}
	return r.c.Tags.applyTags(ctx, tx, h.Tags, h.FullyQualifiedName)
}

func applyPatch(patchType PatchType, doc, patch []byte) ([]byte, error) {
	switch patchType {
	case JSONPatch:
		p, err := jsonpatch.DecodePatch(patch)
		if err != nil {
			return nil, apperror.Validation("Invalid JSON patch: %v", err)
		}
		out, err := p.Apply(doc)
		if err != nil {
			return nil, apperror.Validation("Failed to apply JSON patch: %v", err)
		}
		return out, nil
	default:
		out, err := jsonpatch.MergePatch(doc, patch)
		if err != nil {
			return nil, apperror.Validation("Invalid merge patch: %v", err)
		}
		return out, nil
	}
}

func versionPrefix(entityType string) string {
	return entityType + ".version."
}

func versionExtension(entityType string, version float64) string {
	return versionPrefix(entityType) + strconv.FormatFloat(version, 'f', 1, 64)
}

func extensionVersion(name, prefix string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimPrefix(name, prefix), 64)
	return v
}

func encodeCursor(fqn string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(fqn))
}

func decodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", apperror.Validation("Invalid cursor %s", cursor)
	}
	return string(data), nil
}
