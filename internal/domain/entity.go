package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entity type names used in relationship rows, references and change events
const (
	EntityUser            = "user"
	EntityTeam            = "team"
	EntityPipelineService = "pipelineService"
	EntityDatabaseService = "databaseService"
	EntityDatabase        = "database"
	EntityTable           = "table"
	EntityPipeline        = "pipeline"
	EntityGlossary        = "glossary"
	EntityGlossaryTerm    = "glossaryTerm"
)

// EntityTypes lists every entity type the catalog persists
var EntityTypes = []string{
	EntityUser,
	EntityTeam,
	EntityPipelineService,
	EntityDatabaseService,
	EntityDatabase,
	EntityTable,
	EntityPipeline,
	EntityGlossary,
	EntityGlossaryTerm,
}

// EntityReference points at another entity by id and type
type EntityReference struct {
	ID          uuid.UUID `json:"id" yaml:"id"`
	Type        string    `json:"type" yaml:"type"`
	Name        string    `json:"name,omitempty" yaml:"name,omitempty"`
	DisplayName string    `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Href        string    `json:"href,omitempty" yaml:"href,omitempty"`
}

// Base holds the attributes shared by every catalog entity. Entities embed it
// so its fields are promoted into their JSON representation.
type Base struct {
	ID                 uuid.UUID          `json:"id"`
	Name               string             `json:"name"`
	DisplayName        string             `json:"displayName,omitempty"`
	FullyQualifiedName string             `json:"fullyQualifiedName,omitempty"`
	Description        string             `json:"description,omitempty"`
	Version            float64            `json:"version,omitempty"`
	UpdatedAt          time.Time          `json:"updatedAt"`
	UpdatedBy          string             `json:"updatedBy,omitempty"`
	Href               string             `json:"href,omitempty"`
	Owner              *EntityReference   `json:"owner,omitempty"`
	Tags               []TagLabel         `json:"tags,omitempty"`
	Followers          []EntityReference  `json:"followers,omitempty"`
	ChangeDescription  *ChangeDescription `json:"changeDescription,omitempty"`
}

// Entity is implemented by every type managed by the generic entity repository
type Entity interface {
	Header() *Base
}

// Header returns the shared attributes
func (b *Base) Header() *Base { return b }

// Reference builds a reference to this entity
func (b *Base) Reference(entityType string) *EntityReference {
	return &EntityReference{
		ID:          b.ID,
		Type:        entityType,
		Name:        b.FullyQualifiedName,
		DisplayName: b.DisplayName,
		Description: b.Description,
		Href:        b.Href,
	}
}

// Paging carries list cursors
type Paging struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
	Total  int    `json:"total"`
}

// ResultList is one page of a collection listing
type ResultList[T any] struct {
	Data   []T    `json:"data"`
	Paging Paging `json:"paging"`
}

// EntityHistory lists stored versions of an entity, latest first
type EntityHistory struct {
	EntityType string `json:"entityType"`
	Versions   []any  `json:"versions"`
}

// Title returns the entity type with its first letter upper-cased, as used in
// user facing messages ("Glossary is not empty").
func Title(entityType string) string {
	if entityType == "" {
		return ""
	}
	return strings.ToUpper(entityType[:1]) + entityType[1:]
}
