package domain

import "time"

// Snapshot is a full export of the catalog
type Snapshot struct {
	GeneratedAt      time.Time          `json:"generatedAt"`
	Users            []*User            `json:"users"`
	Teams            []*Team            `json:"teams"`
	TagCategories    []TagCategory      `json:"tagCategories"`
	PipelineServices []*PipelineService `json:"pipelineServices"`
	DatabaseServices []*DatabaseService `json:"databaseServices"`
	Databases        []*Database        `json:"databases"`
	Tables           []*Table           `json:"tables"`
	Pipelines        []*Pipeline        `json:"pipelines"`
	Glossaries       []*Glossary        `json:"glossaries"`
	GlossaryTerms    []*GlossaryTerm    `json:"glossaryTerms"`
}

// Seed is the content of a seed file. Every entry is upserted, so loading
// the same file twice leaves the catalog unchanged.
type Seed struct {
	Users            []CreateUser            `json:"users,omitempty"`
	Teams            []SeedTeam              `json:"teams,omitempty"`
	TagCategories    []TagCategory           `json:"tagCategories,omitempty"`
	PipelineServices []CreatePipelineService `json:"pipelineServices,omitempty"`
	DatabaseServices []CreateDatabaseService `json:"databaseServices,omitempty"`
	Glossaries       []CreateGlossary        `json:"glossaries,omitempty"`
}

// SeedTeam names its members instead of listing their ids
type SeedTeam struct {
	Name        string   `json:"name" validate:"required,max=64"`
	DisplayName string   `json:"displayName,omitempty"`
	Description string   `json:"description,omitempty"`
	Users       []string `json:"users,omitempty"`
}

// IsEmpty reports whether the seed declares nothing
func (s *Seed) IsEmpty() bool {
	return len(s.Users)+len(s.Teams)+len(s.TagCategories)+
		len(s.PipelineServices)+len(s.DatabaseServices)+len(s.Glossaries) == 0
}
