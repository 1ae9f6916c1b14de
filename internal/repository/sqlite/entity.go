package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"metacatalog/internal/repository"
)

type entityDAO struct {
	tx *sql.Tx
}

// Insert stores a new entity document
func (d *entityDAO) Insert(ctx context.Context, entityType string, row repository.EntityRow) error {
	table, err := tableFor(entityType)
	if err != nil {
		return err
	}

	_, err = d.tx.ExecContext(ctx,
		`INSERT INTO `+table+` (id, fqn, json, updated_at) VALUES (?, ?, ?, ?)`,
		row.ID.String(), row.FQN, string(row.JSON), time.Now().UnixMilli())
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("failed to insert %s %s: %w", entityType, row.FQN, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert %s: %w", entityType, err)
	}
	return nil
}

// Update replaces the stored document of an existing entity
func (d *entityDAO) Update(ctx context.Context, entityType string, row repository.EntityRow) error {
	table, err := tableFor(entityType)
	if err != nil {
		return err
	}

	_, err = d.tx.ExecContext(ctx,
		`UPDATE `+table+` SET fqn = ?, json = ?, updated_at = ? WHERE id = ?`,
		row.FQN, string(row.JSON), time.Now().UnixMilli(), row.ID.String())
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("failed to update %s %s: %w", entityType, row.FQN, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to update %s: %w", entityType, err)
	}
	return nil
}

// FindByID retrieves a single entity by ID
func (d *entityDAO) FindByID(ctx context.Context, entityType string, id uuid.UUID) (*repository.EntityRow, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	return d.findOne(ctx, entityType, `SELECT `+entityColumns+` FROM `+table+` WHERE id = ?`, id.String())
}

// FindByName retrieves a single entity by fully qualified name
func (d *entityDAO) FindByName(ctx context.Context, entityType string, fqn string) (*repository.EntityRow, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	return d.findOne(ctx, entityType, `SELECT `+entityColumns+` FROM `+table+` WHERE fqn = ?`, fqn)
}

func (d *entityDAO) findOne(ctx context.Context, entityType, query string, arg any) (*repository.EntityRow, error) {
	var row entityRow
	err := d.tx.QueryRowContext(ctx, query, arg).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", entityType, err)
	}

	result, err := row.toRepository()
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAfter returns up to limit entities with FQN greater than after
func (d *entityDAO) ListAfter(ctx context.Context, entityType, fqnPrefix, after string, limit int) ([]repository.EntityRow, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}

	where, args := prefixClause(fqnPrefix)
	query := `SELECT ` + entityColumns + ` FROM ` + table + ` WHERE fqn > ?` + where + ` ORDER BY fqn LIMIT ?`
	args = append([]any{after}, args...)
	args = append(args, limit)

	return d.list(ctx, entityType, query, args...)
}

// ListBefore returns up to limit entities with FQN less than before, in FQN order
func (d *entityDAO) ListBefore(ctx context.Context, entityType, fqnPrefix, before string, limit int) ([]repository.EntityRow, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}

	where, args := prefixClause(fqnPrefix)
	query := `SELECT ` + entityColumns + ` FROM ` + table + ` WHERE fqn < ?` + where + ` ORDER BY fqn DESC LIMIT ?`
	args = append([]any{before}, args...)
	args = append(args, limit)

	rows, err := d.list(ctx, entityType, query, args...)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (d *entityDAO) list(ctx context.Context, entityType, query string, args ...any) ([]repository.EntityRow, error) {
	rows, err := d.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entityType, err)
	}
	defer rows.Close()

	var result []repository.EntityRow
	for rows.Next() {
		var row entityRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", entityType, err)
		}
		converted, err := row.toRepository()
		if err != nil {
			return nil, err
		}
		result = append(result, converted)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", entityType, err)
	}
	return result, nil
}

// Count returns the number of entities under the FQN prefix
func (d *entityDAO) Count(ctx context.Context, entityType, fqnPrefix string) (int, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return 0, err
	}

	where, args := prefixClause(fqnPrefix)
	var count int
	err = d.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE 1 = 1`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", entityType, err)
	}
	return count, nil
}

// Delete removes an entity row
func (d *entityDAO) Delete(ctx context.Context, entityType string, id uuid.UUID) error {
	table, err := tableFor(entityType)
	if err != nil {
		return err
	}

	if _, err := d.tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete %s: %w", entityType, err)
	}
	return nil
}

func prefixClause(fqnPrefix string) (string, []any) {
	if fqnPrefix == "" {
		return "", nil
	}
	return ` AND fqn LIKE ? ESCAPE '\'`, []any{likePrefix(fqnPrefix)}
}
