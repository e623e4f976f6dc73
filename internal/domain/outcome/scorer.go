// Package outcome derives the 1..5 ground-truth quality label of a past event
// from its attendance and rating data.
package outcome

import (
	"math"

	"github.com/okian/compass/internal/domain/model"
)

// Defaults for the scorer.
const (
	DefaultPriorMean        = 3.0
	DefaultPriorCount       = 0.0
	DefaultAttendanceWeight = 0.6
	DefaultRatingWeight     = 0.4

	neutralRating = 0.5
)

// Outcome is the scored result for a single event.
type Outcome struct {
	AttendanceRate   float64
	NormalizedRating float64
	Label            int
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithRatingPrior sets the prior mean and pseudo-count used for rating shrinkage.
func WithRatingPrior(mean, count float64) Option {
	return func(s *Scorer) {
		if mean >= model.MinScore && mean <= model.MaxScore {
			s.priorMean = mean
		}
		if count >= 0 {
			s.priorCount = count
		}
	}
}

// WithWeights sets the blend weights of attendance and rating.
func WithWeights(attendance, rating float64) Option {
	return func(s *Scorer) {
		if attendance >= 0 && rating >= 0 && attendance+rating > 0 {
			s.attendanceWeight = attendance
			s.ratingWeight = rating
		}
	}
}

// Scorer computes outcome labels. It is immutable and safe for concurrent use.
type Scorer struct {
	priorMean        float64
	priorCount       float64
	attendanceWeight float64
	ratingWeight     float64
}

// New returns a scorer with the default prior and weights.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		priorMean:        DefaultPriorMean,
		priorCount:       DefaultPriorCount,
		attendanceWeight: DefaultAttendanceWeight,
		ratingWeight:     DefaultRatingWeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the attendance rate, the normalized rating and the label of ev.
func (s *Scorer) Score(ev model.RawEvent) Outcome {
	att := AttendanceRate(ev.AttendedCount, ev.RegisteredCount)
	rating := s.NormalizedRating(ev.RatingAvg, ev.RatingCount)
	return Outcome{
		AttendanceRate:   att,
		NormalizedRating: rating,
		Label:            s.FiveScale(att, rating),
	}
}

// AttendanceRate is attended/max(1, registered) clamped to [0,1].
func AttendanceRate(attended, registered *int) float64 {
	reg := 1.0
	if registered != nil && *registered > 1 {
		reg = float64(*registered)
	}
	var att float64
	if attended != nil {
		att = float64(*attended)
	}
	return clamp01(att / reg)
}

// NormalizedRating shrinks avg toward the prior mean and rescales the 1..5
// result onto [0,1]. Without ratings it returns the neutral 0.5.
func (s *Scorer) NormalizedRating(avg *float64, count *int) float64 {
	if count == nil || *count <= 0 {
		return neutralRating
	}
	n := float64(*count)
	mean := s.priorMean
	if avg != nil && !math.IsNaN(*avg) {
		mean = *avg
	}
	shrunk := (mean*n + s.priorMean*s.priorCount) / (n + s.priorCount)
	return clamp01((shrunk - model.MinScore) / (model.MaxScore - model.MinScore))
}

// FiveScale blends attendance and rating and maps the blend to an integer
// label in [1,5].
func (s *Scorer) FiveScale(attendanceRate, normalizedRating float64) int {
	blend := s.attendanceWeight*attendanceRate + s.ratingWeight*normalizedRating
	label := int(math.Round(model.MinScore + (model.MaxScore-model.MinScore)*clamp01(blend)))
	return max(model.MinScore, min(model.MaxScore, label))
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
