package domain

// GlossaryFields are the fields a glossary or glossary term GET may request
var GlossaryFields = []string{FieldOwner, FieldTags, FieldFollowers}

// Glossary is a container of business terms
type Glossary struct {
	Base
}

// CreateGlossary is the POST/PUT request body for glossaries
type CreateGlossary struct {
	Name        string           `json:"name" validate:"required,max=128"`
	DisplayName string           `json:"displayName,omitempty"`
	Description string           `json:"description,omitempty"`
	Tags        []TagLabel       `json:"tags,omitempty" validate:"dive"`
	Owner       *EntityReference `json:"owner,omitempty"`
}

// ToEntity builds the glossary described by the request
func (c *CreateGlossary) ToEntity() *Glossary {
	return &Glossary{Base: Base{
		Name:        c.Name,
		DisplayName: c.DisplayName,
		Description: c.Description,
		Owner:       c.Owner,
		Tags:        c.Tags,
	}}
}

// GlossaryTerm is a single business term inside a glossary
type GlossaryTerm struct {
	Base
	Glossary *EntityReference `json:"glossary,omitempty"`
	Synonyms []string         `json:"synonyms,omitempty"`
}

// CreateGlossaryTerm is the POST/PUT request body for glossary terms
type CreateGlossaryTerm struct {
	Name        string           `json:"name" validate:"required,max=128"`
	DisplayName string           `json:"displayName,omitempty"`
	Description string           `json:"description,omitempty"`
	Synonyms    []string         `json:"synonyms,omitempty"`
	Tags        []TagLabel       `json:"tags,omitempty" validate:"dive"`
	Owner       *EntityReference `json:"owner,omitempty"`
	Glossary    *EntityReference `json:"glossary" validate:"required"`
}

// ToEntity builds the glossary term described by the request
func (c *CreateGlossaryTerm) ToEntity() *GlossaryTerm {
	return &GlossaryTerm{
		Base: Base{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Description: c.Description,
			Owner:       c.Owner,
			Tags:        c.Tags,
		},
		Glossary: c.Glossary,
		Synonyms: c.Synonyms,
	}
}
