package repository

import "github.com/okian/compass/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithPastEvents preloads historical events.
func WithPastEvents(events ...model.RawEvent) Option {
	return func(s *MemoryStore) {
		for _, ev := range events {
			s.past[ev.ID] = ev
		}
	}
}

// WithPlannedEvents preloads planned events.
func WithPlannedEvents(events ...model.RawEvent) Option {
	return func(s *MemoryStore) {
		for _, ev := range events {
			s.planned[ev.ID] = ev
		}
	}
}
