// Package repository defines the event and stats store ports and an
// in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/compass/internal/domain/model"
)

// EventSource is the read-only upstream of raw events.
type EventSource interface {
	// HistoricalEvents returns every past event.
	HistoricalEvents(ctx context.Context) ([]model.RawEvent, error)
	// Event returns one event by id, planned or past.
	// Returns ErrNotFound if the id is unknown.
	Event(ctx context.Context, id string) (model.RawEvent, error)
}

// StatsStore persists per-event scoring rows.
type StatsStore interface {
	// UpsertStats inserts or replaces the row keyed by s.EventID. Each call is
	// atomic for its row; no cross-row transaction is implied.
	UpsertStats(ctx context.Context, s model.EventStats) error
	// AllStats returns every stored row.
	AllStats(ctx context.Context) ([]model.EventStats, error)
}

// EventWriter loads raw events into a store, used by seeding and import.
type EventWriter interface {
	SavePastEvents(ctx context.Context, events []model.RawEvent) error
	SavePlannedEvents(ctx context.Context, events []model.RawEvent) error
}
