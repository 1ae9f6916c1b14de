package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"metacatalog/internal/domain"
)

type eventDAO struct {
	tx *sql.Tx
}

// Insert appends a change event
func (d *eventDAO) Insert(ctx context.Context, event *domain.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	_, err = d.tx.ExecContext(ctx, `
		INSERT INTO change_event (event_type, entity_type, entity_id, ts, json)
		VALUES (?, ?, ?, ?, ?)
	`, string(event.EventType), event.EntityType, event.EntityID.String(), event.DateTime.UnixMilli(), string(data))
	if err != nil {
		return fmt.Errorf("failed to insert change event: %w", err)
	}
	return nil
}

// List returns events at or after filter.Since that match the filter, oldest first
func (d *eventDAO) List(ctx context.Context, filter domain.EventFilter) ([]domain.ChangeEvent, error) {
	rows, err := d.tx.QueryContext(ctx, `
		SELECT json FROM change_event WHERE ts >= ? ORDER BY seq
	`, filter.Since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query change events: %w", err)
	}
	defer rows.Close()

	events := []domain.ChangeEvent{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan change event: %w", err)
		}
		var event domain.ChangeEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal change event: %w", err)
		}
		if filter.Matches(&event) {
			events = append(events, event)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating change events: %w", err)
	}
	return events, nil
}
