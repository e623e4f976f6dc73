// Package features converts raw event attributes into the normalized
// scoring dimensions used by the outcome model.
package features

import (
	"strings"
	"time"
)

// Time-of-day buckets.
const (
	Morning = iota
	Afternoon
	Evening
	LateNight
	bucketCount
)

// Default table values.
const (
	defaultIdealSize        = 115
	defaultTargetCost       = 35.0
	defaultExamWindowDays   = 5
	defaultFoodWeight       = 0.70
	defaultGiveawayWeight   = 0.30
	defaultRegRequired      = 0.64
	defaultRegWalkIn        = 0.36
	defaultOnCampusWeight   = 0.729
	defaultOffCampusWeight  = 0.271
	defaultCategoryFallback = 0.5
)

// ExamPeriod is an inclusive date range.
type ExamPeriod struct {
	Start time.Time
	End   time.Time
}

// BucketRange is a [Start, End) window in minutes after midnight. End < Start
// wraps past midnight.
type BucketRange struct {
	Start int
	End   int
}

func (b BucketRange) contains(minute int) bool {
	if b.Start <= b.End {
		return minute >= b.Start && minute < b.End
	}
	return minute >= b.Start || minute < b.End
}

// Tables holds the fixed lookup tables and constants of the extractor.
// It is immutable once built; accessors hand out copies.
type Tables struct {
	dayWeights      [7]float64 // Monday..Sunday
	defaultDay      time.Weekday
	bucketWeights   [bucketCount]float64
	bucketRanges    [bucketCount]BucketRange
	defaultBucket   int
	examPeriods     []ExamPeriod
	examWindowDays  float64
	categoryWeights map[string]float64 // lower-cased keys
	defaultCategory float64
	idealSize       int
	targetCost      float64
	foodWeight      float64
	giveawayWeight  float64
	regRequired     float64
	regWalkIn       float64
	venues          []string // lower-cased
	onCampusWeight  float64
	offCampusWeight float64
}

// TableOption customizes a Tables value during construction.
type TableOption func(*Tables)

// WithDayWeights sets the Monday..Sunday weights.
func WithDayWeights(w [7]float64) TableOption {
	return func(t *Tables) { t.dayWeights = w }
}

// WithBucketWeights sets the morning/afternoon/evening/late-night weights.
func WithBucketWeights(w [4]float64) TableOption {
	return func(t *Tables) { t.bucketWeights = w }
}

// WithExamPeriods replaces the exam ranges.
func WithExamPeriods(periods ...ExamPeriod) TableOption {
	return func(t *Tables) {
		t.examPeriods = append([]ExamPeriod(nil), periods...)
	}
}

// WithExamWindowDays sets the proximity window around exam ranges.
func WithExamWindowDays(days int) TableOption {
	return func(t *Tables) {
		if days > 0 {
			t.examWindowDays = float64(days)
		}
	}
}

// WithCategoryWeights replaces the category popularity table. The fallback
// weight is used for unknown categories.
func WithCategoryWeights(weights map[string]float64, fallback float64) TableOption {
	return func(t *Tables) {
		t.categoryWeights = make(map[string]float64, len(weights))
		for k, v := range weights {
			t.categoryWeights[strings.ToLower(k)] = v
		}
		t.defaultCategory = fallback
	}
}

// WithIdealSize sets the registration count at which size fit peaks.
func WithIdealSize(n int) TableOption {
	return func(t *Tables) {
		if n > 0 {
			t.idealSize = n
		}
	}
}

// WithTargetCostPerAttendee sets the budgeting target.
func WithTargetCostPerAttendee(cost float64) TableOption {
	return func(t *Tables) {
		if cost > 0 {
			t.targetCost = cost
		}
	}
}

// WithIncentiveWeights sets the food and giveaway weights.
func WithIncentiveWeights(food, giveaway float64) TableOption {
	return func(t *Tables) {
		t.foodWeight = food
		t.giveawayWeight = giveaway
	}
}

// WithRegistrationWeights sets the required and walk-in constants.
func WithRegistrationWeights(required, walkIn float64) TableOption {
	return func(t *Tables) {
		t.regRequired = required
		t.regWalkIn = walkIn
	}
}

// WithVenues replaces the on-campus venue list.
func WithVenues(venues ...string) TableOption {
	return func(t *Tables) {
		t.venues = make([]string, 0, len(venues))
		for _, v := range venues {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				t.venues = append(t.venues, v)
			}
		}
	}
}

// WithLocationWeights sets the on- and off-campus constants.
func WithLocationWeights(onCampus, offCampus float64) TableOption {
	return func(t *Tables) {
		t.onCampusWeight = onCampus
		t.offCampusWeight = offCampus
	}
}

// NewTables returns the default tables with opts applied.
func NewTables(opts ...TableOption) Tables {
	t := Tables{
		dayWeights:    [7]float64{0.4, 0.3, 0.4, 0.4, 1.0, 1.0, 0.9},
		defaultDay:    time.Friday,
		bucketWeights: [bucketCount]float64{0.1, 0.5, 1.0, 0.7},
		bucketRanges: [bucketCount]BucketRange{
			Morning:   {Start: 6 * 60, End: 12 * 60},
			Afternoon: {Start: 12 * 60, End: 17 * 60},
			Evening:   {Start: 17 * 60, End: 22 * 60},
			LateNight: {Start: 22 * 60, End: 2 * 60},
		},
		defaultBucket: Evening,
		examPeriods: []ExamPeriod{
			{Start: date(2025, time.October, 13), End: date(2025, time.October, 18)},
			{Start: date(2025, time.December, 8), End: date(2025, time.December, 17)},
		},
		examWindowDays: defaultExamWindowDays,
		categoryWeights: map[string]float64{
			"performance": 0.8,
			"social":      0.9,
			"tour":        0.7,
			"luncheon":    1.0,
			"outdoors":    0.6,
			"other":       0.5,
		},
		defaultCategory: defaultCategoryFallback,
		idealSize:       defaultIdealSize,
		targetCost:      defaultTargetCost,
		foodWeight:      defaultFoodWeight,
		giveawayWeight:  defaultGiveawayWeight,
		regRequired:     defaultRegRequired,
		regWalkIn:       defaultRegWalkIn,
		venues: []string{
			"thwing atrium",
			"hovorka atrium",
			"ksl oval",
			"thwing ballroom",
			"guilford house",
			"strosacker",
			"adelbert gym",
			"eastbell commons",
			"tink ballroom",
			"tvuc soc",
			"freiburger field",
		},
		onCampusWeight:  defaultOnCampusWeight,
		offCampusWeight: defaultOffCampusWeight,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// ExamPeriods returns a copy of the exam ranges.
func (t Tables) ExamPeriods() []ExamPeriod {
	return append([]ExamPeriod(nil), t.examPeriods...)
}

// Venues returns a copy of the on-campus venue list.
func (t Tables) Venues() []string {
	return append([]string(nil), t.venues...)
}

// IdealSize returns the configured ideal registration count.
func (t Tables) IdealSize() int { return t.idealSize }

// TargetCostPerAttendee returns the budgeting target.
func (t Tables) TargetCostPerAttendee() float64 { return t.targetCost }

// RegistrationWeights returns the required and walk-in constants.
func (t Tables) RegistrationWeights() (required, walkIn float64) {
	return t.regRequired, t.regWalkIn
}

// LocationWeights returns the on- and off-campus constants.
func (t Tables) LocationWeights() (onCampus, offCampus float64) {
	return t.onCampusWeight, t.offCampusWeight
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
