package domain

import "time"

// Pipeline specific optional fields
const FieldTasks = "tasks"

// PipelineFields are the fields a pipeline GET may request
var PipelineFields = []string{FieldOwner, FieldTasks, FieldFollowers, FieldTags}

// Task is one step of a pipeline, matched across versions by name
type Task struct {
	Name            string     `json:"name" validate:"required"`
	DisplayName     string     `json:"displayName,omitempty"`
	Description     string     `json:"description,omitempty"`
	TaskURL         string     `json:"taskUrl,omitempty"`
	TaskType        string     `json:"taskType,omitempty"`
	DownstreamTasks []string   `json:"downstreamTasks,omitempty"`
	Tags            []TagLabel `json:"tags,omitempty"`
}

// Pipeline is a workflow registered under a pipeline service
type Pipeline struct {
	Base
	PipelineURL      string           `json:"pipelineUrl,omitempty"`
	Concurrency      *int             `json:"concurrency,omitempty"`
	PipelineLocation string           `json:"pipelineLocation,omitempty"`
	StartDate        *time.Time       `json:"startDate,omitempty"`
	Tasks            []Task           `json:"tasks,omitempty"`
	Service          *EntityReference `json:"service,omitempty"`
	ServiceType      string           `json:"serviceType,omitempty"`
}

// CreatePipeline is the POST/PUT request body for pipelines
type CreatePipeline struct {
	Name             string           `json:"name" validate:"required,max=128"`
	DisplayName      string           `json:"displayName,omitempty"`
	Description      string           `json:"description,omitempty"`
	PipelineURL      string           `json:"pipelineUrl,omitempty" validate:"omitempty,url"`
	Concurrency      *int             `json:"concurrency,omitempty"`
	PipelineLocation string           `json:"pipelineLocation,omitempty"`
	StartDate        *time.Time       `json:"startDate,omitempty"`
	Tasks            []Task           `json:"tasks,omitempty" validate:"dive"`
	Tags             []TagLabel       `json:"tags,omitempty" validate:"dive"`
	Owner            *EntityReference `json:"owner,omitempty"`
	Service          *EntityReference `json:"service" validate:"required"`
}

// ToEntity builds the pipeline described by the request
func (c *CreatePipeline) ToEntity() *Pipeline {
	return &Pipeline{
		Base: Base{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Description: c.Description,
			Owner:       c.Owner,
			Tags:        c.Tags,
		},
		PipelineURL:      c.PipelineURL,
		Concurrency:      c.Concurrency,
		PipelineLocation: c.PipelineLocation,
		StartDate:        c.StartDate,
		Tasks:            c.Tasks,
		Service:          c.Service,
	}
}
