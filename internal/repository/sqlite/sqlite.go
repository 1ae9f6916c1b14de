package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"metacatalog/internal/domain"
	"metacatalog/internal/repository"

	_ "modernc.org/sqlite"
)

// Store implements repository.Store using SQLite
type Store struct {
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)

// New opens (or creates) the catalog database and migrates its schema.
// Use ":memory:" for a throwaway database.
func New(dbPath string) (*Store, error) {
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if dbPath == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes transactions and keeps an in-memory
	// database alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// entityTables maps entity types to their table names
var entityTables = map[string]string{
	domain.EntityUser:            "user_entity",
	domain.EntityTeam:            "team_entity",
	domain.EntityPipelineService: "pipeline_service_entity",
	domain.EntityDatabaseService: "database_service_entity",
	domain.EntityDatabase:        "database_entity",
	domain.EntityTable:           "table_entity",
	domain.EntityPipeline:        "pipeline_entity",
	domain.EntityGlossary:        "glossary_entity",
	domain.EntityGlossaryTerm:    "glossary_term_entity",
}

func tableFor(entityType string) (string, error) {
	table, ok := entityTables[entityType]
	if !ok {
		return "", fmt.Errorf("unknown entity type %q", entityType)
	}
	return table, nil
}

func (s *Store) migrate() error {
	var b strings.Builder
	for _, entityType := range domain.EntityTypes {
		table := entityTables[entityType]
		fmt.Fprintf(&b, `
	CREATE TABLE IF NOT EXISTS %[1]s (
		id TEXT PRIMARY KEY,
		fqn TEXT NOT NULL UNIQUE,
		json JSON NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT 0
	);
	`, table)
	}

	b.WriteString(`
	CREATE TABLE IF NOT EXISTS entity_relationship (
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		from_entity TEXT NOT NULL,
		to_entity TEXT NOT NULL,
		relation INTEGER NOT NULL,
		PRIMARY KEY (from_id, to_id, relation)
	);

	CREATE TABLE IF NOT EXISTS tag_category (
		name TEXT PRIMARY KEY,
		json JSON NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tag (
		fqn TEXT PRIMARY KEY,
		parent TEXT NOT NULL,
		json JSON NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tag_usage (
		tag_fqn TEXT NOT NULL,
		target_fqn TEXT NOT NULL,
		label_type TEXT NOT NULL,
		state TEXT NOT NULL,
		PRIMARY KEY (tag_fqn, target_fqn)
	);

	CREATE TABLE IF NOT EXISTS entity_extension (
		id TEXT NOT NULL,
		extension TEXT NOT NULL,
		json JSON NOT NULL,
		PRIMARY KEY (id, extension)
	);

	CREATE TABLE IF NOT EXISTS change_event (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		ts INTEGER NOT NULL,
		json JSON NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_token (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		hash BLOB NOT NULL,
		expires_at INTEGER,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_relationship_to ON entity_relationship(to_id, relation);
	CREATE INDEX IF NOT EXISTS idx_tag_parent ON tag(parent);
	CREATE INDEX IF NOT EXISTS idx_tag_usage_target ON tag_usage(target_fqn);
	CREATE INDEX IF NOT EXISTS idx_change_event_ts ON change_event(ts);
	CREATE INDEX IF NOT EXISTS idx_user_token_user ON user_token(user_id);
	`)

	_, err := s.db.Exec(b.String())
	return err
}

// InTx runs fn inside a transaction
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&tx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close releases resources
func (s *Store) Close() error {
	return s.db.Close()
}

// tx binds every DAO to one sql.Tx
type tx struct {
	tx *sql.Tx
}

func (t *tx) Entities() repository.EntityDAO { return &entityDAO{tx: t.tx} }
func (t *tx) Relationships() repository.RelationshipDAO { return &relationshipDAO{tx: t.tx} }
func (t *tx) Tags() repository.TagDAO { return &tagDAO{tx: t.tx} }
func (t *tx) Extensions() repository.ExtensionDAO { return &extensionDAO{tx: t.tx} }
func (t *tx) Events() repository.EventDAO { return &eventDAO{tx: t.tx} }
func (t *tx) Tokens() repository.TokenDAO { return &tokenDAO{tx: t.tx} }
