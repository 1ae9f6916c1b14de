package service

import (
	"context"

	"metacatalog/internal/apperror"
	"metacatalog/internal/coltype"
	"metacatalog/internal/domain"
	"metacatalog/internal/repository"
)

type pipelineServiceHooks struct {
	noHooks[*domain.PipelineService]
}

func (pipelineServiceHooks) updateSpecific(_ context.Context, _ repository.Tx, u *updater, orig, upd *domain.PipelineService) error {
	u.recordChange("serviceType", orig.ServiceType, upd.ServiceType)
	u.recordChange("pipelineUrl", orig.PipelineURL, upd.PipelineURL)
	return nil
}

type databaseServiceHooks struct {
	noHooks[*domain.DatabaseService]
}

func (databaseServiceHooks) updateSpecific(_ context.Context, _ repository.Tx, u *updater, orig, upd *domain.DatabaseService) error {
	u.recordChange("serviceType", orig.ServiceType, upd.ServiceType)
	u.recordChange("hostPort", orig.HostPort, upd.HostPort)
	return nil
}

// databaseHooks places databases under their database service
type databaseHooks struct {
	noHooks[*domain.Database]
	c *Catalog
}

func (h *databaseHooks) prepare(ctx context.Context, tx repository.Tx, db *domain.Database) error {
	service, err := h.c.resolveReference(ctx, tx, "service", db.Service, domain.EntityDatabaseService)
	if err != nil {
		return err
	}
	stored, err := loadEntity[domain.DatabaseService](ctx, tx, domain.EntityDatabaseService, service.ID)
	if err != nil {
		return err
	}
	db.Service = service
	db.ServiceType = stored.ServiceType
	db.FullyQualifiedName = domain.BuildFQN(service.Name, db.Name)
	return nil
}

func (h *databaseHooks) setFields(ctx context.Context, tx repository.Tx, db *domain.Database, fields domain.Fields) error {
	service, err := h.c.containerOf(ctx, tx, db.ID, domain.EntityDatabaseService)
	if err != nil {
		return err
	}
	db.Service = service
	db.Tables = nil
	if fields.Contains(domain.FieldTables) {
		if db.Tables, err = h.c.contained(ctx, tx, db.ID, domain.EntityTable); err != nil {
			return err
		}
	}
	return nil
}

func (h *databaseHooks) strip(db *domain.Database) func() {
	service, tables := db.Service, db.Tables
	db.Service, db.Tables = nil, nil
	return func() { db.Service, db.Tables = service, tables }
}

func (h *databaseHooks) storeRelationships(ctx context.Context, tx repository.Tx, db *domain.Database) error {
	return containedIn(ctx, tx, db.Service, db.Reference(domain.EntityDatabase))
}

func (h *databaseHooks) restorePatchAttributes(orig, patched *domain.Database) {
	patched.Service = orig.Service
	patched.ServiceType = orig.ServiceType
	patched.Tables = orig.Tables
}

func (h *databaseHooks) mergeForPut(stored, incoming *domain.Database) {
	incoming.Tables = stored.Tables
}

// tableHooks places tables under their database. Column tags live in tag
// usage keyed by the column FQN, not in the stored document.
type tableHooks struct {
	noHooks[*domain.Table]
	c *Catalog
}

func (h *tableHooks) prepare(ctx context.Context, tx repository.Tx, t *domain.Table) error {
	database, err := h.c.resolveReference(ctx, tx, "database", t.Database, domain.EntityDatabase)
	if err != nil {
		return err
	}
	t.Database = database
	t.FullyQualifiedName = domain.BuildFQN(database.Name, t.Name)
	return h.prepareColumns(ctx, tx, t.FullyQualifiedName, t.Columns)
}

func (h *tableHooks) prepareColumns(ctx context.Context, tx repository.Tx, parentFQN string, columns []domain.Column) error {
	for i := range columns {
		col := &columns[i]
		if err := checkName("column", col.Name); err != nil {
			return err
		}
		if col.DataType == "" {
			if col.DataTypeDisplay == "" {
				return apperror.Validation("column %s must have a dataType or a dataTypeDisplay", col.Name)
			}
			parsed, err := coltype.Parse(col.DataTypeDisplay)
			if err != nil {
				return apperror.Validation("column %s: %v", col.Name, err)
			}
			parsed.Apply(col)
		}
		col.FullyQualifiedName = domain.BuildFQN(parentFQN, col.Name)
		tags, err := h.c.Tags.withDerived(ctx, tx, col.Tags)
		if err != nil {
			return err
		}
		col.Tags = tags
		if err := h.prepareColumns(ctx, tx, col.FullyQualifiedName, col.Children); err != nil {
			return err
		}
	}
	return nil
}

func (h *tableHooks) setFields(ctx context.Context, tx repository.Tx, t *domain.Table, fields domain.Fields) error {
	database, err := h.c.containerOf(ctx, tx, t.ID, domain.EntityDatabase)
	if err != nil {
		return err
	}
	t.Database = database
	if !fields.Contains(domain.FieldColumns) {
		t.Columns = nil
		return nil
	}
	return h.columnTags(ctx, tx, t.Columns)
}

func (h *tableHooks) columnTags(ctx context.Context, tx repository.Tx, columns []domain.Column) error {
	for i := range columns {
		tags, err := h.c.Tags.getTags(ctx, tx, columns[i].FullyQualifiedName)
		if err != nil {
			return err
		}
		columns[i].Tags = tags
		if err := h.columnTags(ctx, tx, columns[i].Children); err != nil {
			return err
		}
	}
	return nil
}

func (h *tableHooks) strip(t *domain.Table) func() {
	database := t.Database
	t.Database = nil

	var (
		columns []*domain.Column
		tags    [][]domain.TagLabel
	)
	walkColumns(t.Columns, func(col *domain.Column) {
		columns = append(columns, col)
		tags = append(tags, col.Tags)
		col.Tags = nil
	})

	return func() {
		t.Database = database
		for i, col := range columns {
			col.Tags = tags[i]
		}
	}
}

func (h *tableHooks) storeRelationships(ctx context.Context, tx repository.Tx, t *domain.Table) error {
	if err := containedIn(ctx, tx, t.Database, t.Reference(domain.EntityTable)); err != nil {
		return err
	}
	return h.applyColumnTags(ctx, tx, t.Columns)
}

func (h *tableHooks) applyColumnTags(ctx context.Context, tx repository.Tx, columns []domain.Column) error {
	var err error
	walkColumns(columns, func(col *domain.Column) {
		if err == nil {
			err = h.c.Tags.applyTags(ctx, tx, col.Tags, col.FullyQualifiedName)
		}
	})
	return err
}

func (h *tableHooks) restorePatchAttributes(orig, patched *domain.Table) {
	patched.Database = orig.Database
}

// mergeForPut keeps column descriptions already curated in the catalog
func (h *tableHooks) mergeForPut(stored, incoming *domain.Table) {
	retainColumnDescriptions(stored.Columns, incoming.Columns)
}

func retainColumnDescriptions(stored, incoming []domain.Column) {
	for i := range incoming {
		col, ok := findMatch(stored, incoming[i], columnMatch)
		if !ok {
			continue
		}
		if col.Description != "" {
			incoming[i].Description = col.Description
		}
		retainColumnDescriptions(col.Children, incoming[i].Children)
	}
}

func (h *tableHooks) updateSpecific(ctx context.Context, tx repository.Tx, u *updater, orig, upd *domain.Table) error {
	u.recordChange("tableType", orig.TableType, upd.TableType)
	return h.updateColumns(ctx, tx, u, domain.FieldColumns, domain.FieldColumns, orig.Columns, upd.Columns)
}

// updateColumns records the column diff. List level changes are filed under
// listField, per column changes under namePrefix.<column>.
func (h *tableHooks) updateColumns(ctx context.Context, tx repository.Tx, u *updater, listField, namePrefix string, orig, upd []domain.Column) error {
	added, deleted := recordListChange(u, listField, orig, upd, columnMatch)
	if len(deleted) > 0 {
		u.markMajor()
	}
	for _, col := range deleted {
		if err := tx.Tags().DeleteTagsByPrefix(ctx, col.FullyQualifiedName); err != nil {
			return err
		}
	}
	if err := h.applyColumnTags(ctx, tx, added); err != nil {
		return err
	}

	for i := range upd {
		col := &upd[i]
		stored, ok := findMatch(orig, *col, columnMatch)
		if !ok {
			continue
		}
		field := namePrefix + "." + col.Name
		u.recordChange(field+".description", stored.Description, col.Description)
		if u.recordChange(field+".dataType", stored.DataType, col.DataType) {
			u.markMajor()
		}
		if stored.DataLength != col.DataLength {
			u.record(field+".dataLength", stored.DataLength, col.DataLength, false)
			u.markMajor()
		}
		u.recordChange(field+".constraint", stored.Constraint, col.Constraint)

		tagsAdded, tagsDeleted := recordListChange(u, field+".tags", stored.Tags, col.Tags, tagLabelMatch)
		if len(tagsAdded)+len(tagsDeleted) > 0 {
			if err := tx.Tags().DeleteTags(ctx, col.FullyQualifiedName); err != nil {
				return err
			}
			if err := h.c.Tags.applyTags(ctx, tx, col.Tags, col.FullyQualifiedName); err != nil {
				return err
			}
		}

		if err := h.updateColumns(ctx, tx, u, field+".children", field, stored.Children, col.Children); err != nil {
			return err
		}
	}
	return nil
}

func (h *tableHooks) onDelete(ctx context.Context, tx repository.Tx, t *domain.Table) error {
	return tx.Tags().DeleteTagsByPrefix(ctx, t.FullyQualifiedName)
}

func columnMatch(a, b domain.Column) bool {
	return a.Name == b.Name
}

// walkColumns visits every column depth first
func walkColumns(columns []domain.Column, fn func(col *domain.Column)) {
	for i := range columns {
		fn(&columns[i])
		walkColumns(columns[i].Children, fn)
	}
}
