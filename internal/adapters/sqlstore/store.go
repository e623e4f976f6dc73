// Package sqlstore implements the repository ports on SQLite through gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/compass/internal/adapters/repository"
	"github.com/okian/compass/internal/domain/model"
	"github.com/okian/compass/pkg/metrics"
)

const (
	storeName = "sqlite"
	batchSize = 100
)

// ErrOpen wraps failures to open or migrate the database.
var ErrOpen = errors.New("open sqlite store")

// Option configures a Store.
type Option func(*options)

type options struct {
	logLevel gormlogger.LogLevel
}

// WithLogLevel sets gorm's own SQL log level. Silent by default.
func WithLogLevel(level gormlogger.LogLevel) Option {
	return func(o *options) { o.logLevel = level }
}

// Store keeps raw events and stats in SQLite.
type Store struct {
	db *gorm.DB
}

var (
	_ repository.EventSource = (*Store)(nil)
	_ repository.StatsStore  = (*Store)(nil)
	_ repository.EventWriter = (*Store)(nil)
)

// Open opens (creating if needed) the database at dsn and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(dsn string, opts ...Option) (*Store, error) {
	o := options{logLevel: gormlogger.Silent}
	for _, opt := range opts {
		opt(&o)
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(o.logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if dsn == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpen, err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&pastEventRow{}, &plannedEventRow{}, &statsRow{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %w", ErrOpen, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HistoricalEvents returns every row of past_events ordered by id.
func (s *Store) HistoricalEvents(ctx context.Context) ([]model.RawEvent, error) {
	defer observe("historical_events", time.Now())
	var rows []pastEventRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load past events: %w", err)
	}
	out := make([]model.RawEvent, len(rows))
	for i, r := range rows {
		out[i] = r.Event.toModel()
	}
	metrics.UpdateStoreRecords(storeName, "past_events", len(rows))
	return out, nil
}

// Event looks up planned events first, then past ones.
func (s *Store) Event(ctx context.Context, id string) (model.RawEvent, error) {
	defer observe("event", time.Now())
	db := s.db.WithContext(ctx)

	var planned plannedEventRow
	err := db.Where("id = ?", id).Take(&planned).Error
	if err == nil {
		return planned.Event.toModel(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.RawEvent{}, fmt.Errorf("load event %s: %w", id, err)
	}

	var past pastEventRow
	err = db.Where("id = ?", id).Take(&past).Error
	switch {
	case err == nil:
		return past.Event.toModel(), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.RawEvent{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	default:
		return model.RawEvent{}, fmt.Errorf("load event %s: %w", id, err)
	}
}

// UpsertStats writes one row keyed by event_id with INSERT … ON CONFLICT.
func (s *Store) UpsertStats(ctx context.Context, st model.EventStats) error {
	if st.EventID == "" {
		return fmt.Errorf("%w: empty event id", repository.ErrInvalidEvent)
	}
	defer observe("upsert_stats", time.Now())
	row := toStatsRow(st)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert stats %s: %w", st.EventID, err)
	}
	return nil
}

// AllStats returns every event_stats row ordered by event id.
func (s *Store) AllStats(ctx context.Context) ([]model.EventStats, error) {
	defer observe("all_stats", time.Now())
	var rows []statsRow
	if err := s.db.WithContext(ctx).Order("event_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	out := make([]model.EventStats, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	metrics.UpdateStoreRecords(storeName, "event_stats", len(rows))
	return out, nil
}

// SavePastEvents upserts historical events by id.
func (s *Store) SavePastEvents(ctx context.Context, events []model.RawEvent) error {
	rows := make([]pastEventRow, 0, len(events))
	for _, ev := range events {
		if ev.ID == "" {
			return fmt.Errorf("%w: empty event id", repository.ErrInvalidEvent)
		}
		rows = append(rows, pastEventRow{Event: toEventRow(ev)})
	}
	return s.saveEvents(ctx, "save_past_events", &rows, len(rows))
}

// SavePlannedEvents upserts planned events by id.
func (s *Store) SavePlannedEvents(ctx context.Context, events []model.RawEvent) error {
	rows := make([]plannedEventRow, 0, len(events))
	for _, ev := range events {
		if ev.ID == "" {
			return fmt.Errorf("%w: empty event id", repository.ErrInvalidEvent)
		}
		rows = append(rows, plannedEventRow{Event: toEventRow(ev)})
	}
	return s.saveEvents(ctx, "save_planned_events", &rows, len(rows))
}

func (s *Store) saveEvents(ctx context.Context, op string, rows any, n int) error {
	if n == 0 {
		return nil
	}
	defer observe(op, time.Now())
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(storeName, op, float64(time.Since(start).Microseconds())/1000)
}
