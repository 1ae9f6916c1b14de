package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Relationship is the type of a directed edge between two entities. The
// ordinal is what gets stored, so new values are only ever appended.
type Relationship int

const (
	// RelationContains: service → database/pipeline, database → table, glossary → term
	RelationContains Relationship = iota
	// RelationCreated: user → entity
	RelationCreated
	// RelationOwns: user/team → entity
	RelationOwns
	// RelationHas: team → user
	RelationHas
	// RelationFollows: user → entity
	RelationFollows
	// RelationUses: entity → entity
	RelationUses
	// RelationUpstream: entity → entity, lineage
	RelationUpstream
)

var relationshipNames = []string{
	"contains",
	"created",
	"owns",
	"has",
	"follows",
	"uses",
	"upstream",
}

// String returns the relationship name
func (r Relationship) String() string {
	if r < 0 || int(r) >= len(relationshipNames) {
		return fmt.Sprintf("relationship(%d)", int(r))
	}
	return relationshipNames[r]
}

// Edge is one row of the relationship table
type Edge struct {
	FromID     uuid.UUID    `json:"fromId"`
	ToID       uuid.UUID    `json:"toId"`
	FromEntity string       `json:"fromEntity"`
	ToEntity   string       `json:"toEntity"`
	Relation   Relationship `json:"relation"`
}

// NewEdge creates a new edge
func NewEdge(from *EntityReference, to *EntityReference, relation Relationship) *Edge {
	return &Edge{
		FromID:     from.ID,
		ToID:       to.ID,
		FromEntity: from.Type,
		ToEntity:   to.Type,
		Relation:   relation,
	}
}
