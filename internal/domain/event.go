package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the kind of change an event describes
type EventType string

const (
	EventEntityCreated EventType = "entityCreated"
	EventEntityUpdated EventType = "entityUpdated"
	EventEntityDeleted EventType = "entityDeleted"
)

// ChangeEvent is a persisted record of one entity change
type ChangeEvent struct {
	EventType         EventType          `json:"eventType"`
	EntityType        string             `json:"entityType"`
	EntityID          uuid.UUID          `json:"entityId"`
	PreviousVersion   float64            `json:"previousVersion"`
	CurrentVersion    float64            `json:"currentVersion"`
	UserName          string             `json:"userName"`
	DateTime          time.Time          `json:"dateTime"`
	ChangeDescription *ChangeDescription `json:"changeDescription,omitempty"`
	Entity            any                `json:"entity,omitempty"`
}

// EventFilter selects stored events. An entity type of "*" matches all types;
// an event type absent from the map is not returned.
type EventFilter struct {
	EntityTypes map[EventType][]string
	Since       time.Time
}

// Matches reports whether the event passes the filter
func (f EventFilter) Matches(e *ChangeEvent) bool {
	if e.DateTime.Before(f.Since) {
		return false
	}
	types, ok := f.EntityTypes[e.EventType]
	if !ok {
		return false
	}
	for _, t := range types {
		if t == "*" || t == e.EntityType {
			return true
		}
	}
	return false
}
