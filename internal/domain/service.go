package domain

// ServiceFields are the fields a service GET may request
var ServiceFields = []string{FieldOwner}

// PipelineServiceType names the scheduler behind a pipeline service
type PipelineServiceType string

const (
	PipelineServiceAirflow PipelineServiceType = "Airflow"
	PipelineServicePrefect PipelineServiceType = "Prefect"
	PipelineServiceGlue    PipelineServiceType = "Glue"
)

// DatabaseServiceType names the engine behind a database service
type DatabaseServiceType string

const (
	DatabaseServiceMySQL     DatabaseServiceType = "MySQL"
	DatabaseServicePostgres  DatabaseServiceType = "Postgres"
	DatabaseServiceSnowflake DatabaseServiceType = "Snowflake"
	DatabaseServiceBigQuery  DatabaseServiceType = "BigQuery"
	DatabaseServiceGlue      DatabaseServiceType = "Glue"
	DatabaseServiceHive      DatabaseServiceType = "Hive"
)

// PipelineService is a scheduler instance that contains pipelines
type PipelineService struct {
	Base
	ServiceType PipelineServiceType `json:"serviceType"`
	PipelineURL string              `json:"pipelineUrl,omitempty"`
}

// DatabaseService is a database engine instance that contains databases
type DatabaseService struct {
	Base
	ServiceType DatabaseServiceType `json:"serviceType"`
	HostPort    string              `json:"hostPort,omitempty"`
}

// CreatePipelineService is the POST/PUT request body for pipeline services
type CreatePipelineService struct {
	Name        string              `json:"name" validate:"required,max=128"`
	DisplayName string              `json:"displayName,omitempty"`
	Description string              `json:"description,omitempty"`
	ServiceType PipelineServiceType `json:"serviceType" validate:"required,oneof=Airflow Prefect Glue"`
	PipelineURL string              `json:"pipelineUrl,omitempty" validate:"omitempty,url"`
	Owner       *EntityReference    `json:"owner,omitempty"`
}

// ToEntity builds the pipeline service described by the request
func (c *CreatePipelineService) ToEntity() *PipelineService {
	return &PipelineService{
		Base: Base{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Description: c.Description,
			Owner:       c.Owner,
		},
		ServiceType: c.ServiceType,
		PipelineURL: c.PipelineURL,
	}
}

// CreateDatabaseService is the POST/PUT request body for database services
type CreateDatabaseService struct {
	Name        string              `json:"name" validate:"required,max=128"`
	DisplayName string              `json:"displayName,omitempty"`
	Description string              `json:"description,omitempty"`
	ServiceType DatabaseServiceType `json:"serviceType" validate:"required,oneof=MySQL Postgres Snowflake BigQuery Glue Hive"`
	HostPort    string              `json:"hostPort,omitempty"`
	Owner       *EntityReference    `json:"owner,omitempty"`
}

// ToEntity builds the database service described by the request
func (c *CreateDatabaseService) ToEntity() *DatabaseService {
	return &DatabaseService{
		Base: Base{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Description: c.Description,
			Owner:       c.Owner,
		},
		ServiceType: c.ServiceType,
		HostPort:    c.HostPort,
	}
}
