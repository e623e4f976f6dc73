// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults and Load(ctx) to layer
//   file and environment values on top.
// - External errors must be wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/compass/internal/domain/features"
	"github.com/okian/compass/internal/domain/linalg"
	"github.com/okian/compass/internal/domain/outcome"
	"github.com/okian/compass/internal/domain/regression"
)

const dateLayout = "2006-01-02"

// ExamPeriod is an inclusive YYYY-MM-DD range.
type ExamPeriod struct {
	Start string `koanf:"start" validate:"required,datetime=2006-01-02"`
	End   string `koanf:"end" validate:"required,datetime=2006-01-02"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the text or json log handler.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// DatabasePath is the SQLite file. Empty keeps everything in memory.
	DatabasePath string `koanf:"database_path"`

	// IdealSize is the registration count at which size fit peaks.
	IdealSize int `koanf:"ideal_size" validate:"gt=0"`

	// TargetCostPerAttendee is the budgeting target.
	TargetCostPerAttendee float64 `koanf:"target_cost_per_attendee" validate:"gt=0"`

	// ExamWindowDays is the proximity window around exam periods.
	ExamWindowDays int `koanf:"exam_window_days" validate:"gt=0"`

	// ExamPeriods replaces the built-in exam calendar when non-empty.
	ExamPeriods []ExamPeriod `koanf:"exam_periods" validate:"dive"`

	RatingPriorMean  float64 `koanf:"rating_prior_mean" validate:"gte=1,lte=5"`
	RatingPriorCount float64 `koanf:"rating_prior_count" validate:"gte=0"`
	AttendanceWeight float64 `koanf:"attendance_weight" validate:"gte=0"`
	RatingWeight     float64 `koanf:"rating_weight" validate:"gte=0"`

	// PivotTolerance is the smallest pivot accepted by matrix inversion.
	PivotTolerance float64 `koanf:"pivot_tolerance" validate:"gt=0"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		IdealSize:             115,
		TargetCostPerAttendee: 35,
		ExamWindowDays:        5,
		RatingPriorMean:       outcome.DefaultPriorMean,
		RatingPriorCount:      outcome.DefaultPriorCount,
		AttendanceWeight:      outcome.DefaultAttendanceWeight,
		RatingWeight:          outcome.DefaultRatingWeight,
		PivotTolerance:        linalg.DefaultPivotTolerance,
	}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and exam period ordering.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.AttendanceWeight+c.RatingWeight == 0 {
		return fmt.Errorf("%w: attendance_weight and rating_weight are both zero", ErrInvalidConfig)
	}
	if _, err := c.examPeriods(); err != nil {
		return err
	}
	return nil
}

func (c *Config) examPeriods() ([]features.ExamPeriod, error) {
	out := make([]features.ExamPeriod, 0, len(c.ExamPeriods))
	for i, p := range c.ExamPeriods {
		start, err := time.Parse(dateLayout, p.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: exam_periods[%d].start: %w", ErrInvalidConfig, i, err)
		}
		end, err := time.Parse(dateLayout, p.End)
		if err != nil {
			return nil, fmt.Errorf("%w: exam_periods[%d].end: %w", ErrInvalidConfig, i, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("%w: exam_periods[%d] ends before it starts", ErrInvalidConfig, i)
		}
		out = append(out, features.ExamPeriod{Start: start, End: end})
	}
	return out, nil
}

// Tables builds the feature lookup tables.
func (c *Config) Tables() (features.Tables, error) {
	periods, err := c.examPeriods()
	if err != nil {
		return features.Tables{}, err
	}
	opts := []features.TableOption{
		features.WithIdealSize(c.IdealSize),
		features.WithTargetCostPerAttendee(c.TargetCostPerAttendee),
		features.WithExamWindowDays(c.ExamWindowDays),
	}
	if len(periods) > 0 {
		opts = append(opts, features.WithExamPeriods(periods...))
	}
	return features.NewTables(opts...), nil
}

// ScorerOptions returns the outcome scorer settings.
func (c *Config) ScorerOptions() []outcome.Option {
	return []outcome.Option{
		outcome.WithRatingPrior(c.RatingPriorMean, c.RatingPriorCount),
		outcome.WithWeights(c.AttendanceWeight, c.RatingWeight),
	}
}

// EngineOptions returns the regression engine settings.
func (c *Config) EngineOptions() []regression.Option {
	return []regression.Option{regression.WithPivotTolerance(c.PivotTolerance)}
}
