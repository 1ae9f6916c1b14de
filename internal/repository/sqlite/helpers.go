package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"metacatalog/internal/repository"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullToTimePtr converts nullable unix milliseconds to *time.Time
func nullToTimePtr(ni sql.NullInt64) *time.Time {
	if !ni.Valid {
		return nil
	}
	t := time.UnixMilli(ni.Int64).UTC()
	return &t
}

// timePtrToNull converts *time.Time to nullable unix milliseconds
func timePtrToNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

// ============================================================================
// Query Helpers
// ============================================================================

// likePrefix returns a LIKE pattern matching strings starting with prefix.
// Queries using it must declare ESCAPE '\'.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// isConstraintViolation reports whether err is a SQLite constraint failure
func isConstraintViolation(err error) bool {
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return strings.Contains(err.Error(), "constraint failed")
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to the entity tables:
// 1. Add field to entityRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update entityColumns constant - APPEND to end
// 4. Update toRepository() to map the new field
// 5. Add the column to the CREATE TABLE template in sqlite.go migrate()
// 6. Update relevant tests
//
// CRITICAL: Column order must match between:
// - entityColumns constant
// - scanArgs() return slice
// - All SELECT queries using entityColumns
//
// Same pattern applies to tag usage and change events.

// ============================================================================
// Entity Row Scanner
// ============================================================================

// entityColumns is the column list for entity queries
const entityColumns = "id, fqn, json"

// entityRow holds all columns from an entity query for scanning
type entityRow struct {
	ID   string
	FQN  string
	JSON []byte
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match entityColumns order exactly: id, fqn, json
func (r *entityRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,   // 1
		&r.FQN,  // 2
		&r.JSON, // 3
	}
}

// toRepository converts the scanned row
func (r *entityRow) toRepository() (repository.EntityRow, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return repository.EntityRow{}, fmt.Errorf("invalid entity id %q: %w", r.ID, err)
	}
	return repository.EntityRow{ID: id, FQN: r.FQN, JSON: r.JSON}, nil
}

// ============================================================================
// Tag Usage Row Scanner
// ============================================================================

// tagUsageColumns is the column list for tag usage queries
const tagUsageColumns = "tag_fqn, label_type, state"

// tagUsageRow holds all columns from a tag usage query for scanning
type tagUsageRow struct {
	TagFQN    string
	LabelType sql.NullString
	State     sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match tagUsageColumns order exactly: tag_fqn, label_type, state
func (r *tagUsageRow) scanArgs() []interface{} {
	return []interface{}{
		&r.TagFQN,    // 1
		&r.LabelType, // 2
		&r.State,     // 3
	}
}

// ============================================================================
// Edge Row Scanner
// ============================================================================

// edgeColumns is the column list for relationship queries
const edgeColumns = "from_id, to_id, from_entity, to_entity, relation"
