// Package domain defines the core types of the metadata catalog.
//
// This package contains the catalog entities and the value objects shared by
// all of them: entity references, tag labels, change descriptions and field
// sets.
//
// # Entities
//
// Every entity embeds Base, which carries identity (id, name, fully qualified
// name), versioning (version, updatedAt, updatedBy, changeDescription) and the
// optional relations owner, tags and followers. Entity specific types add
// their own attributes:
//
// - Pipeline and Task, contained by a PipelineService
// - Database and Table, contained by a DatabaseService
// - Glossary and GlossaryTerm
// - User and Team, the only valid owners
//
// # Relationships
//
// Edge is a directed (from, to, relation) row. Ownership, following and
// containment are all modelled as edges rather than as columns on the entity.
//
// # Versioning
//
// Versions start at 0.1. A minor change adds 0.1, a major change adds 1.0.
// ChangeDescription records which fields were added, updated or deleted by
// the update that produced the current version.
//
// # Design Principles
//
// - No database or external dependencies beyond uuid
// - Fully qualified names are derived, never set by callers
// - JSON field names match the REST representation
package domain
