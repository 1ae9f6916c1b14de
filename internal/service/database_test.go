package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metacatalog/internal/apperror"
	"metacatalog/internal/domain"
)

func createDatabase(t *testing.T, c *Catalog) *domain.Database {
	t.Helper()
	ctx := adminContext()
	serviceReq := &domain.CreateDatabaseService{Name: "mysql", ServiceType: domain.DatabaseServiceMySQL, HostPort: "localhost:3306"}
	service, err := c.DatabaseServices.Create(ctx, serviceReq.ToEntity())
	require.NoError(t, err)

	dbReq := &domain.CreateDatabase{
		Name:    "shop",
		Service: &domain.EntityReference{ID: service.ID, Type: domain.EntityDatabaseService},
	}
	db, err := c.Databases.Create(ctx, dbReq.ToEntity())
	require.NoError(t, err)
	return db
}

func tableRequest(db *domain.Database, columns ...domain.Column) *domain.CreateTable {
	return &domain.CreateTable{
		Name:      "orders",
		TableType: domain.TableRegular,
		Columns:   columns,
		Database:  &domain.EntityReference{ID: db.ID, Type: domain.EntityDatabase},
	}
}

func TestCreateTable(t *testing.T) {
	c := newTestCatalog(t)
	ctx := adminContext()
	createTagCategories(t, c)
	db := createDatabase(t, c)
	assert.Equal(t, "mysql.shop", db.FullyQualifiedName)
	assert.Equal(t, domain.DatabaseServiceMySQL, db.ServiceType)

	table, err := c.Tables.Create(ctx, tableRequest(db,
		domain.Column{Name: "id", DataType: domain.DataTypeInt, Constraint: domain.ConstraintPrimaryKey},
		domain.Column{Name: "address", DataTypeDisplay: "varchar(64)", Tags: []domain.TagLabel{{TagFQN: "User.Address"}}},
		domain.Column{Name: "items", DataTypeDisplay: "array<struct<sku:string,qty:int>>"},
	).ToEntity())
	require.NoError(t, err)

	assert.Equal(t, "mysql.shop.orders", table.FullyQualifiedName)
	require.Len(t, table.Columns, 3)
	assert.Equal(t, "mysql.shop.orders.address", table.Columns[1].FullyQualifiedName)
	assert.Equal(t, domain.DataTypeVarchar, table.Columns[1].DataType)
	assert.Equal(t, 64, table.Columns[1].DataLength)
	assert.Equal(t, domain.DataTypeArray, table.Columns[2].DataType)
	assert.Equal(t, domain.DataTypeStruct, table.Columns[2].ArrayDataType)

	got, err := c.Tables.Get(ctx, table.ID, "columns")
	require.NoError(t, err)
	require.Len(t, got.Columns, 3)
	require.Len(t, got.Columns[1].Tags, 2)
	assert.Nil(t, got.Columns[0].Tags)
	require.NotNil(t, got.Database)
	assert.Equal(t, "mysql.shop", got.Database.Name)

	withoutColumns, err := c.Tables.Get(ctx, table.ID, "")
	require.NoError(t, err)
	assert.Nil(t, withoutColumns.Columns)

	database, err := c.Databases.Get(ctx, db.ID, "tables")
	require.NoError(t, err)
	require.Len(t, database.Tables, 1)
	assert.Equal(t, table.ID, database.Tables[0].ID)

	t.Run("column without type", func(t *testing.T) {
		req := tableRequest(db, domain.Column{Name: "mystery"})
		req.Name = "broken"
		_, err := c.Tables.Create(ctx, req.ToEntity())
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("dotted column name", func(t *testing.T) {
		req := tableRequest(db, domain.Column{Name: "a.b", DataType: domain.DataTypeInt})
		req.Name = "dotted"
		_, err := c.Tables.Create(ctx, req.ToEntity())
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("usage removed with the table", func(t *testing.T) {
		_, err := c.Tables.Delete(ctx, table.ID)
		require.NoError(t, err)
		category, err := c.Tags.GetCategory(ctx, "User")
		require.NoError(t, err)
		assert.Equal(t, 0, category.UsageCount)
	})
}

func TestUpdateTableColumns(t *testing.T) {
	c := newTestCatalog(t)
	ctx := adminContext()
	db := createDatabase(t, c)

	table, _, err := c.Tables.CreateOrUpdate(ctx, tableRequest(db,
		domain.Column{Name: "id", DataType: domain.DataTypeInt},
		domain.Column{Name: "note", DataType: domain.DataTypeVarchar, DataLength: 10, Description: "curated"},
	).ToEntity())
	require.NoError(t, err)

	t.Run("new column is a minor change", func(t *testing.T) {
		updated, created, err := c.Tables.CreateOrUpdate(ctx, tableRequest(db,
			domain.Column{Name: "id", DataType: domain.DataTypeInt},
			domain.Column{Name: "note", DataType: domain.DataTypeVarchar, DataLength: 10},
			domain.Column{Name: "total", DataType: domain.DataTypeDouble},
		).ToEntity())
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, 0.2, updated.Version)
		assert.Equal(t, []string{"columns"}, fieldNames(updated.ChangeDescription.FieldsAdded))
		assert.Equal(t, "curated", updated.Columns[1].Description)
	})

	t.Run("type change is a major change", func(t *testing.T) {
		updated, _, err := c.Tables.CreateOrUpdate(ctx, tableRequest(db,
			domain.Column{Name: "id", DataType: domain.DataTypeBigInt},
			domain.Column{Name: "note", DataType: domain.DataTypeVarchar, DataLength: 10},
			domain.Column{Name: "total", DataType: domain.DataTypeDouble},
		).ToEntity())
		require.NoError(t, err)
		assert.Equal(t, 1.2, updated.Version)
		assert.Equal(t, []string{"columns.id.dataType"}, fieldNames(updated.ChangeDescription.FieldsUpdated))
	})

	t.Run("removed column is a major change", func(t *testing.T) {
		updated, _, err := c.Tables.CreateOrUpdate(ctx, tableRequest(db,
			domain.Column{Name: "id", DataType: domain.DataTypeBigInt},
			domain.Column{Name: "note", DataType: domain.DataTypeVarchar, DataLength: 10},
		).ToEntity())
		require.NoError(t, err)
		assert.Equal(t, 2.2, updated.Version)
		assert.Equal(t, []string{"columns"}, fieldNames(updated.ChangeDescription.FieldsDeleted))
	})

	t.Run("column description patch", func(t *testing.T) {
		patched, err := c.Tables.Patch(ctx, table.ID, JSONPatch,
			[]byte(`[{"op": "add", "path": "/columns/0/description", "value": "key"}]`))
		require.NoError(t, err)
		assert.Equal(t, 2.3, patched.Version)
		assert.Equal(t, []string{"columns.id.description"}, fieldNames(patched.ChangeDescription.FieldsAdded))
	})
}
