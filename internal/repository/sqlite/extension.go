package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"metacatalog/internal/repository"
)

type extensionDAO struct {
	tx *sql.Tx
}

// Insert stores or replaces an extension document
func (d *extensionDAO) Insert(ctx context.Context, id uuid.UUID, name string, data []byte) error {
	_, err := d.tx.ExecContext(ctx, `
		INSERT INTO entity_extension (id, extension, json) VALUES (?, ?, ?)
		ON CONFLICT(id, extension) DO UPDATE SET json = excluded.json
	`, id.String(), name, string(data))
	if err != nil {
		return fmt.Errorf("failed to insert extension %s: %w", name, err)
	}
	return nil
}

// Get returns one extension document
func (d *extensionDAO) Get(ctx context.Context, id uuid.UUID, name string) ([]byte, error) {
	var data []byte
	err := d.tx.QueryRowContext(ctx, `
		SELECT json FROM entity_extension WHERE id = ? AND extension = ?
	`, id.String(), name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query extension: %w", err)
	}
	return data, nil
}

// List returns the extensions of id whose name starts with prefix
func (d *extensionDAO) List(ctx context.Context, id uuid.UUID, prefix string) ([]repository.Extension, error) {
	rows, err := d.tx.QueryContext(ctx, `
		SELECT extension, json FROM entity_extension
		WHERE id = ? AND extension LIKE ? ESCAPE '\'
		ORDER BY extension
	`, id.String(), likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to query extensions: %w", err)
	}
	defer rows.Close()

	var extensions []repository.Extension
	for rows.Next() {
		var ext repository.Extension
		if err := rows.Scan(&ext.Name, &ext.JSON); err != nil {
			return nil, fmt.Errorf("failed to scan extension: %w", err)
		}
		extensions = append(extensions, ext)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extensions: %w", err)
	}
	return extensions, nil
}

// DeleteAll removes every extension of id
func (d *extensionDAO) DeleteAll(ctx context.Context, id uuid.UUID) error {
	if _, err := d.tx.ExecContext(ctx, `DELETE FROM entity_extension WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete extensions: %w", err)
	}
	return nil
}
