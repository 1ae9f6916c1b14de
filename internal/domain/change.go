package domain

import "math"

// InitialVersion is the version assigned on create
const InitialVersion = 0.1

// FieldChange is a single entry of a change description. Nested fields use
// dotted names such as "tasks.taskEmpty.description".
type FieldChange struct {
	Name     string `json:"name"`
	OldValue any    `json:"oldValue,omitempty"`
	NewValue any    `json:"newValue,omitempty"`
}

// ChangeDescription records the field level diff of one update
type ChangeDescription struct {
	FieldsAdded     []FieldChange `json:"fieldsAdded"`
	FieldsUpdated   []FieldChange `json:"fieldsUpdated"`
	FieldsDeleted   []FieldChange `json:"fieldsDeleted"`
	PreviousVersion float64       `json:"previousVersion"`
}

// NewChangeDescription returns an empty change description
func NewChangeDescription(previous float64) *ChangeDescription {
	return &ChangeDescription{
		FieldsAdded:     []FieldChange{},
		FieldsUpdated:   []FieldChange{},
		FieldsDeleted:   []FieldChange{},
		PreviousVersion: previous,
	}
}

// IsEmpty reports whether no field changed
func (c *ChangeDescription) IsEmpty() bool {
	return c == nil || len(c.FieldsAdded)+len(c.FieldsUpdated)+len(c.FieldsDeleted) == 0
}

// NextMinorVersion bumps the version by 0.1
func NextMinorVersion(v float64) float64 {
	return roundVersion(v + 0.1)
}

// NextMajorVersion bumps the version by 1.0
func NextMajorVersion(v float64) float64 {
	return roundVersion(v + 1.0)
}

func roundVersion(v float64) float64 {
	return math.Round(v*10) / 10
}
