package domain

// Database and table specific optional fields
const (
	FieldTables  = "tables"
	FieldColumns = "columns"
)

// DatabaseFields are the fields a database GET may request
var DatabaseFields = []string{FieldOwner, FieldTables, FieldFollowers}

// TableFields are the fields a table GET may request
var TableFields = []string{FieldOwner, FieldColumns, FieldFollowers, FieldTags}

// Database is a schema namespace inside a database service
type Database struct {
	Base
	Service     *EntityReference    `json:"service,omitempty"`
	ServiceType DatabaseServiceType `json:"serviceType,omitempty"`
	Tables      []EntityReference   `json:"tables,omitempty"`
}

// CreateDatabase is the POST/PUT request body for databases
type CreateDatabase struct {
	Name        string           `json:"name" validate:"required,max=128"`
	DisplayName string           `json:"displayName,omitempty"`
	Description string           `json:"description,omitempty"`
	Owner       *EntityReference `json:"owner,omitempty"`
	Service     *EntityReference `json:"service" validate:"required"`
}

// ToEntity builds the database described by the request
func (c *CreateDatabase) ToEntity() *Database {
	return &Database{
		Base: Base{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Description: c.Description,
			Owner:       c.Owner,
		},
		Service: c.Service,
	}
}

// TableType classifies a table
type TableType string

const (
	TableRegular      TableType = "Regular"
	TableExternal     TableType = "External"
	TableView         TableType = "View"
	TableSecureView   TableType = "SecureView"
	TableMaterialized TableType = "MaterializedView"
)

// DataType is a catalog column data type
type DataType string

const (
	DataTypeNumber     DataType = "NUMBER"
	DataTypeTinyInt    DataType = "TINYINT"
	DataTypeSmallInt   DataType = "SMALLINT"
	DataTypeInt        DataType = "INT"
	DataTypeBigInt     DataType = "BIGINT"
	DataTypeByteInt    DataType = "BYTEINT"
	DataTypeFloat      DataType = "FLOAT"
	DataTypeDouble     DataType = "DOUBLE"
	DataTypeDecimal    DataType = "DECIMAL"
	DataTypeNumeric    DataType = "NUMERIC"
	DataTypeTimestamp  DataType = "TIMESTAMP"
	DataTypeTime       DataType = "TIME"
	DataTypeDate       DataType = "DATE"
	DataTypeDatetime   DataType = "DATETIME"
	DataTypeInterval   DataType = "INTERVAL"
	DataTypeString     DataType = "STRING"
	DataTypeMediumText DataType = "MEDIUMTEXT"
	DataTypeText       DataType = "TEXT"
	DataTypeChar       DataType = "CHAR"
	DataTypeVarchar    DataType = "VARCHAR"
	DataTypeBoolean    DataType = "BOOLEAN"
	DataTypeBinary     DataType = "BINARY"
	DataTypeVarbinary  DataType = "VARBINARY"
	DataTypeArray      DataType = "ARRAY"
	DataTypeBlob       DataType = "BLOB"
	DataTypeLongBlob   DataType = "LONGBLOB"
	DataTypeMediumBlob DataType = "MEDIUMBLOB"
	DataTypeMap        DataType = "MAP"
	DataTypeStruct     DataType = "STRUCT"
	DataTypeUnion      DataType = "UNION"
	DataTypeSet        DataType = "SET"
	DataTypeGeography  DataType = "GEOGRAPHY"
	DataTypeEnum       DataType = "ENUM"
	DataTypeJSON       DataType = "JSON"
	DataTypeUUID       DataType = "UUID"
	DataTypeBytes      DataType = "BYTES"
	DataTypeNull       DataType = "NULL"
)

// ColumnConstraint is a column level constraint
type ColumnConstraint string

const (
	ConstraintNull       ColumnConstraint = "NULL"
	ConstraintNotNull    ColumnConstraint = "NOT_NULL"
	ConstraintUnique     ColumnConstraint = "UNIQUE"
	ConstraintPrimaryKey ColumnConstraint = "PRIMARY_KEY"
)

// Column is a table column; children hold nested struct members
type Column struct {
	Name               string           `json:"name" validate:"required"`
	DataType           DataType         `json:"dataType,omitempty"`
	DataTypeDisplay    string           `json:"dataTypeDisplay,omitempty"`
	ArrayDataType      DataType         `json:"arrayDataType,omitempty"`
	DataLength         int              `json:"dataLength,omitempty"`
	Description        string           `json:"description,omitempty"`
	FullyQualifiedName string           `json:"fullyQualifiedName,omitempty"`
	Tags               []TagLabel       `json:"tags,omitempty"`
	Constraint         ColumnConstraint `json:"constraint,omitempty"`
	OrdinalPosition    int              `json:"ordinalPosition,omitempty"`
	Children           []Column         `json:"children,omitempty"`
}

// Table is a table or view inside a database
type Table struct {
	Base
	TableType TableType        `json:"tableType,omitempty"`
	Columns   []Column         `json:"columns,omitempty"`
	Database  *EntityReference `json:"database,omitempty"`
}

// CreateTable is the POST/PUT request body for tables
type CreateTable struct {
	Name        string           `json:"name" validate:"required,max=128"`
	DisplayName string           `json:"displayName,omitempty"`
	Description string           `json:"description,omitempty"`
	TableType   TableType        `json:"tableType,omitempty"`
	Columns     []Column         `json:"columns" validate:"required,dive"`
	Tags        []TagLabel       `json:"tags,omitempty" validate:"dive"`
	Owner       *EntityReference `json:"owner,omitempty"`
	Database    *EntityReference `json:"database" validate:"required"`
}

// ToEntity builds the table described by the request
func (c *CreateTable) ToEntity() *Table {
	return &Table{
		Base: Base{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Description: c.Description,
			Owner:       c.Owner,
			Tags:        c.Tags,
		},
		TableType: c.TableType,
		Columns:   c.Columns,
		Database:  c.Database,
	}
}
