package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/compass/internal/domain/model"
	"github.com/okian/compass/pkg/metrics"
)

const memoryStoreName = "memory"

// MemoryStore keeps events and stats in maps. Every method takes the lock for
// its own duration only, so a reader may observe a refresh partway through.
type MemoryStore struct {
	mu      sync.RWMutex
	past    map[string]model.RawEvent
	planned map[string]model.RawEvent
	stats   map[string]model.EventStats
}

var (
	_ EventSource = (*MemoryStore)(nil)
	_ StatsStore  = (*MemoryStore)(nil)
	_ EventWriter = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store with opts applied.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		past:    make(map[string]model.RawEvent),
		planned: make(map[string]model.RawEvent),
		stats:   make(map[string]model.EventStats),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HistoricalEvents returns past events ordered by id.
func (s *MemoryStore) HistoricalEvents(ctx context.Context) ([]model.RawEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer observe("historical_events", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RawEvent, 0, len(s.past))
	for _, ev := range s.past {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Event looks up planned events first, then past ones.
func (s *MemoryStore) Event(ctx context.Context, id string) (model.RawEvent, error) {
	if err := ctx.Err(); err != nil {
		return model.RawEvent{}, err
	}
	defer observe("event", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ev, ok := s.planned[id]; ok {
		return ev, nil
	}
	if ev, ok := s.past[id]; ok {
		return ev, nil
	}
	metrics.RecordErrorByComponent("repository", "not_found")
	return model.RawEvent{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// UpsertStats replaces the row for s.EventID.
func (s *MemoryStore) UpsertStats(ctx context.Context, st model.EventStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st.EventID == "" {
		return fmt.Errorf("%w: empty event id", ErrInvalidEvent)
	}
	defer observe("upsert_stats", time.Now())
	s.mu.Lock()
	s.stats[st.EventID] = st
	n := len(s.stats)
	s.mu.Unlock()
	metrics.UpdateStoreRecords(memoryStoreName, "event_stats", n)
	return nil
}

// AllStats returns every row ordered by event id.
func (s *MemoryStore) AllStats(ctx context.Context) ([]model.EventStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer observe("all_stats", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.EventStats, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out, nil
}

// SavePastEvents stores historical events, replacing ones with the same id.
func (s *MemoryStore) SavePastEvents(ctx context.Context, events []model.RawEvent) error {
	return s.save(ctx, s.past, "past_events", events)
}

// SavePlannedEvents stores planned events, replacing ones with the same id.
func (s *MemoryStore) SavePlannedEvents(ctx context.Context, events []model.RawEvent) error {
	return s.save(ctx, s.planned, "events", events)
}

func (s *MemoryStore) save(ctx context.Context, dst map[string]model.RawEvent, table string, events []model.RawEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, ev := range events {
		if ev.ID == "" {
			return fmt.Errorf("%w: empty event id", ErrInvalidEvent)
		}
	}
	s.mu.Lock()
	for _, ev := range events {
		dst[ev.ID] = ev
	}
	n := len(dst)
	s.mu.Unlock()
	metrics.UpdateStoreRecords(memoryStoreName, table, n)
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(memoryStoreName, op, float64(time.Since(start).Microseconds())/1000)
}
