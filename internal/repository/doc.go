// Package repository defines the data access interfaces for the catalog.
//
// This package provides the DAO abstraction layer for persisting and
// retrieving catalog entities. The actual implementation is in the sqlite
// subpackage.
//
// # Store and Tx
//
// Store opens transactions. Every repository operation of the service layer
// runs inside exactly one InTx call, and all DAOs reached through the Tx share
// that transaction.
//
// # DAOs
//
// - EntityDAO: entity JSON documents keyed by id and fully qualified name
// - RelationshipDAO: directed (from, to, relation) edges
// - TagDAO: tag categories, tags and tag usage keyed by target FQN
// - ExtensionDAO: per entity extension documents, used for version history
// - EventDAO: persisted change events
// - TokenDAO: hashed user API tokens
//
// # Not Found
//
// Single row lookups return nil, nil when the row does not exist. Turning that
// into a not found error is the caller's decision.
package repository
