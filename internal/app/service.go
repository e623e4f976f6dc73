// Package service orchestrates the stats refresh, model fit and prediction
// pipeline over the event and stats stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/compass/internal/adapters/repository"
	"github.com/okian/compass/internal/domain/features"
	"github.com/okian/compass/internal/domain/model"
	"github.com/okian/compass/internal/domain/outcome"
	"github.com/okian/compass/internal/domain/regression"
	"github.com/okian/compass/pkg/logger"
	"github.com/okian/compass/pkg/metrics"
)

// RefreshResult summarizes one RefreshStats pass. Invalidated counts skipped
// events whose earlier stats row was replaced by an unusable one.
type RefreshResult struct {
	Upserted    int `json:"upserted"`
	Skipped     int `json:"skipped"`
	Invalidated int `json:"invalidated"`
}

// Service runs the pipeline. It holds no mutable state of its own; every call
// reads the stores afresh, so concurrent calls may observe a refresh in flight.
type Service struct {
	source    repository.EventSource
	stats     repository.StatsStore
	extractor *features.Extractor
	scorer    *outcome.Scorer
	engine    *regression.Engine
	now       func() time.Time
	logger    logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithExtractor replaces the default feature extractor.
func WithExtractor(e *features.Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithOutcomeScorer replaces the default outcome scorer.
func WithOutcomeScorer(sc *outcome.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithEngine replaces the default regression engine.
func WithEngine(e *regression.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithClock sets the time source used for the Updated stamp.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service over the given stores.
func New(source repository.EventSource, stats repository.StatsStore, opts ...Option) *Service {
	s := &Service{
		source:    source,
		stats:     stats,
		extractor: features.NewExtractor(features.NewTables()),
		scorer:    outcome.New(),
		engine:    regression.New(),
		now:       time.Now,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshStats recomputes features and the outcome label of every historical
// event and upserts one stats row per event. Events failing validation are
// skipped. A row whose values are unchanged keeps its previous Updated stamp.
func (s *Service) RefreshStats(ctx context.Context) (RefreshResult, error) {
	start := time.Now()
	var res RefreshResult
	err := s.refresh(ctx, &res)
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
		metrics.RecordErrorByComponent("service", "refresh")
		s.logger.Error(ctx, "stats refresh failed", logger.Error(err), logger.Int("upserted", res.Upserted))
	} else {
		s.logger.Info(ctx, "stats refreshed",
			logger.Int("upserted", res.Upserted),
			logger.Int("skipped", res.Skipped),
			logger.Int("invalidated", res.Invalidated),
			logger.Duration("took", time.Since(start)),
		)
	}
	metrics.RecordRefresh(result, res.Upserted, res.Skipped, msSince(start))
	return res, err
}

func (s *Service) refresh(ctx context.Context, res *RefreshResult) error {
	events, err := s.source.HistoricalEvents(ctx)
	if err != nil {
		return fmt.Errorf("%w: load historical events: %w", ErrUpstreamStore, err)
	}
	existing, err := s.stats.AllStats(ctx)
	if err != nil {
		return fmt.Errorf("%w: load stats: %w", ErrDownstreamStore, err)
	}
	previous := make(map[string]model.EventStats, len(existing))
	for _, row := range existing {
		previous[row.EventID] = row
	}

	now := s.now().UTC()
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		if err := ev.Validate(); err != nil {
			res.Skipped++
			s.logger.Warn(ctx, "skipping invalid historical event",
				logger.String("eventID", ev.ID),
				logger.Error(err),
			)
			if old, ok := previous[ev.ID]; ok {
				if err := s.invalidate(ctx, old, now, res); err != nil {
					return err
				}
			}
			continue
		}
		row := s.statsFor(ev)
		row.Updated = now
		if old, ok := previous[ev.ID]; ok && old.SameValues(row) {
			row.Updated = old.Updated
		}
		if err := s.stats.UpsertStats(ctx, row); err != nil {
			return fmt.Errorf("%w: upsert %s: %w", ErrDownstreamStore, ev.ID, err)
		}
		res.Upserted++
	}
	return nil
}

// invalidate replaces the stored row of an event that no longer validates
// with one that FitModel ignores. An already invalidated row is left as is.
func (s *Service) invalidate(ctx context.Context, old model.EventStats, now time.Time, res *RefreshResult) error {
	row := invalidStats(old.EventID)
	if old.SameValues(row) {
		return nil
	}
	row.Updated = now
	if err := s.stats.UpsertStats(ctx, row); err != nil {
		return fmt.Errorf("%w: invalidate %s: %w", ErrDownstreamStore, old.EventID, err)
	}
	res.Invalidated++
	return nil
}

func invalidStats(id string) model.EventStats {
	return model.EventStats{
		EventID:          id,
		AttendanceRate:   math.NaN(),
		NormalizedRating: math.NaN(),
		Score:            math.NaN(),
	}
}

func (s *Service) statsFor(ev model.RawEvent) model.EventStats {
	out := s.scorer.Score(ev)
	return model.EventStats{
		EventID:          ev.ID,
		Features:         s.extractor.Extract(ev),
		AttendanceRate:   out.AttendanceRate,
		NormalizedRating: out.NormalizedRating,
		Score:            float64(out.Label),
	}
}

// FitModel fits a fresh model from the stats rows visible now. Rows with any
// non-finite value are ignored.
func (s *Service) FitModel(ctx context.Context) (model.RegressionModel, error) {
	start := time.Now()
	rows, err := s.stats.AllStats(ctx)
	if err != nil {
		metrics.RecordFit(metrics.ResultError, 0, msSince(start))
		return model.RegressionModel{}, fmt.Errorf("%w: load stats: %w", ErrDownstreamStore, err)
	}
	samples := regression.Usable(rows)
	m, err := s.engine.Fit(samples)
	metrics.RecordFit(fitResult(err), len(samples), msSince(start))
	if err != nil {
		s.logger.Warn(ctx, "model fit failed",
			logger.Int("rows", len(rows)),
			logger.Int("usable", len(samples)),
			logger.Error(err),
		)
		return model.RegressionModel{}, fmt.Errorf("fit model: %w", err)
	}
	s.logger.Debug(ctx, "model fitted",
		logger.Int("sampleSize", m.SampleSize),
		logger.Float64("intercept", m.Intercept),
	)
	return m, nil
}

// Predict scores the event with id using features computed from its raw
// attributes and a model fitted just now. The result is clamped to [1,5].
func (s *Service) Predict(ctx context.Context, id string) (model.Prediction, error) {
	fv, err := s.Features(ctx, id)
	if err != nil {
		return model.Prediction{}, err
	}
	m, err := s.FitModel(ctx)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("predict %s: %w", id, err)
	}
	raw := m.Apply(fv)
	score := model.ClampScore(raw)
	metrics.RecordPrediction(score, score != raw)
	s.logger.Debug(ctx, "prediction served",
		logger.String("eventID", id),
		logger.Float64("score", score),
		logger.Float64("unclamped", raw),
	)
	return model.Prediction{
		EventID:        id,
		Features:       fv,
		PredictedScore: score,
		Unclamped:      raw,
		Model:          m,
	}, nil
}

// Features returns the feature breakdown of the event with id.
func (s *Service) Features(ctx context.Context, id string) (model.FeatureVector, error) {
	ev, err := s.source.Event(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordErrorByComponent("service", "not_found")
			return model.FeatureVector{}, err
		}
		return model.FeatureVector{}, fmt.Errorf("%w: load event %s: %w", ErrUpstreamStore, id, err)
	}
	if err := ev.Validate(); err != nil {
		return model.FeatureVector{}, err
	}
	return s.extractor.Extract(ev), nil
}

// Stats returns the stats rows currently stored, ordered by event id.
func (s *Service) Stats(ctx context.Context) ([]model.EventStats, error) {
	rows, err := s.stats.AllStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load stats: %w", ErrDownstreamStore, err)
	}
	return rows, nil
}

func fitResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrInsufficientData):
		return metrics.ResultInsufficientData
	case errors.Is(err, ErrSingularMatrix):
		return metrics.ResultSingularMatrix
	default:
		return metrics.ResultError
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
