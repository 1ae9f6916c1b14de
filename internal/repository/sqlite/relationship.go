package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"metacatalog/internal/domain"
)

type relationshipDAO struct {
	tx *sql.Tx
}

// Insert adds an edge; inserting an existing edge is a no-op
func (d *relationshipDAO) Insert(ctx context.Context, edge *domain.Edge) error {
	_, err := d.tx.ExecContext(ctx, `
		INSERT INTO entity_relationship (from_id, to_id, from_entity, to_entity, relation)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(from_id, to_id, relation) DO NOTHING
	`, edge.FromID.String(), edge.ToID.String(), edge.FromEntity, edge.ToEntity, int(edge.Relation))
	if err != nil {
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	return nil
}

// Delete removes a single edge
func (d *relationshipDAO) Delete(ctx context.Context, fromID, toID uuid.UUID, relation domain.Relationship) error {
	_, err := d.tx.ExecContext(ctx, `
		DELETE FROM entity_relationship WHERE from_id = ? AND to_id = ? AND relation = ?
	`, fromID.String(), toID.String(), int(relation))
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	return nil
}

// FindTo returns edges leaving fromID
func (d *relationshipDAO) FindTo(ctx context.Context, fromID uuid.UUID, relation domain.Relationship, toEntity string) ([]domain.Edge, error) {
	query := `SELECT ` + edgeColumns + ` FROM entity_relationship WHERE from_id = ? AND relation = ?`
	args := []any{fromID.String(), int(relation)}
	if toEntity != "" {
		query += ` AND to_entity = ?`
		args = append(args, toEntity)
	}
	return d.query(ctx, query+` ORDER BY to_entity, to_id`, args...)
}

// FindFrom returns edges arriving at toID
func (d *relationshipDAO) FindFrom(ctx context.Context, toID uuid.UUID, relation domain.Relationship, fromEntity string) ([]domain.Edge, error) {
	query := `SELECT ` + edgeColumns + ` FROM entity_relationship WHERE to_id = ? AND relation = ?`
	args := []any{toID.String(), int(relation)}
	if fromEntity != "" {
		query += ` AND from_entity = ?`
		args = append(args, fromEntity)
	}
	return d.query(ctx, query+` ORDER BY from_entity, from_id`, args...)
}

func (d *relationshipDAO) query(ctx context.Context, query string, args ...any) ([]domain.Edge, error) {
	rows, err := d.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var edges []domain.Edge
	for rows.Next() {
		var (
			fromID, toID         string
			fromEntity, toEntity string
			relation             int
		)
		if err := rows.Scan(&fromID, &toID, &fromEntity, &toEntity, &relation); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}

		from, err := uuid.Parse(fromID)
		if err != nil {
			return nil, fmt.Errorf("invalid relationship from_id %q: %w", fromID, err)
		}
		to, err := uuid.Parse(toID)
		if err != nil {
			return nil, fmt.Errorf("invalid relationship to_id %q: %w", toID, err)
		}

		edges = append(edges, domain.Edge{
			FromID:     from,
			ToID:       to,
			FromEntity: fromEntity,
			ToEntity:   toEntity,
			Relation:   domain.Relationship(relation),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}
	return edges, nil
}

// DeleteFrom removes edges leaving fromID
func (d *relationshipDAO) DeleteFrom(ctx context.Context, fromID uuid.UUID, relation domain.Relationship, toEntity string) error {
	query := `DELETE FROM entity_relationship WHERE from_id = ? AND relation = ?`
	args := []any{fromID.String(), int(relation)}
	if toEntity != "" {
		query += ` AND to_entity = ?`
		args = append(args, toEntity)
	}
	if _, err := d.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}
	return nil
}

// DeleteTo removes edges arriving at toID
func (d *relationshipDAO) DeleteTo(ctx context.Context, toID uuid.UUID, relation domain.Relationship, fromEntity string) error {
	query := `DELETE FROM entity_relationship WHERE to_id = ? AND relation = ?`
	args := []any{toID.String(), int(relation)}
	if fromEntity != "" {
		query += ` AND from_entity = ?`
		args = append(args, fromEntity)
	}
	if _, err := d.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}
	return nil
}

// DeleteAll removes every edge touching id
func (d *relationshipDAO) DeleteAll(ctx context.Context, id uuid.UUID) error {
	_, err := d.tx.ExecContext(ctx, `
		DELETE FROM entity_relationship WHERE from_id = ? OR to_id = ?
	`, id.String(), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}
	return nil
}
