// Package service implements the catalog's business logic.
//
// It sits between the HTTP handlers and the repository layer. Every
// operation runs inside one store transaction, and the resulting change
// events are published after commit.
//
// # Repositories
//
// Repository is generic over the entity type and provides get, list, create,
// create-or-update, patch, delete, version history and followers. Entity
// specific rules (how the FQN is derived, which container an entity lives
// in, which fields are diffed on update) are supplied by a hooks value per
// entity type. Catalog wires one Repository per entity type to a shared
// store.
//
// # Change tracking
//
// Updates are diffed field by field into a ChangeDescription. An update that
// changes nothing keeps the stored version. Otherwise the previous document
// is kept as a version snapshot and the version is bumped by 0.1, or by 1.0
// for backward incompatible changes such as removing a column.
//
// # Tags and tokens
//
// TagService manages tag categories and tags and resolves the labels applied
// to entities. TokenService issues and verifies bcrypt hashed API tokens.
//
// # Event System
//
// Committed change events are published on EventBus; the SSE hub relays
// them to connected clients.
package service
