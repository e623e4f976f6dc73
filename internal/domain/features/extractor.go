package features

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/compass/internal/domain/model"
)

const hoursPerDay = 24

// AudienceFunc scores the audience dimension of an event.
type AudienceFunc func(model.RawEvent) model.Slot

// Option configures an Extractor.
type Option func(*Extractor)

// WithAudience installs a real audience scorer in place of the placeholder slot.
func WithAudience(fn AudienceFunc) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.audience = fn
		}
	}
}

// Extractor computes feature vectors. It holds no mutable state and is safe
// for concurrent use. The same extractor serves historical refreshes and
// live predictions.
type Extractor struct {
	tables   Tables
	audience AudienceFunc
}

// NewExtractor returns an extractor bound to tables.
func NewExtractor(tables Tables, opts ...Option) *Extractor {
	e := &Extractor{
		tables:   tables,
		audience: func(model.RawEvent) model.Slot { return model.Unimplemented() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tables returns the tables the extractor was built with.
func (e *Extractor) Tables() Tables { return e.tables }

// Extract computes every feature of ev.
func (e *Extractor) Extract(ev model.RawEvent) model.FeatureVector {
	return model.FeatureVector{
		Timing:       e.Timing(ev.StartDate, ev.EndDate, ev.StartTime),
		Structure:    e.Structure(ev.EventType, ev.RegisteredCount),
		Incentives:   e.Incentives(ev.FoodProvided, ev.Giveaways),
		Audience:     e.Audience(ev),
		Budgeting:    e.Budgeting(ev.Spending, ev.AttendedCount),
		Registration: e.Registration(ev.RegistrationRequired),
		Location:     e.Location(ev.Location),
	}
}

// Timing averages the day-of-week weight, the time-of-day bucket weight and
// the exam proximity term.
func (e *Extractor) Timing(startDate, endDate, startTime string) float64 {
	start, hasStart := parseDate(startDate)
	end, hasEnd := parseDate(endDate)
	if !hasEnd {
		end = start
	}

	day := e.tables.defaultDay
	if hasStart {
		day = start.Weekday()
	}
	dow := e.tables.dayWeights[(int(day)+6)%7]
	tb := e.tables.bucketWeights[e.bucket(startTime)]

	prox := 1.0
	if hasStart {
		prox = e.examProximity(start, end)
	}
	return clamp01((dow + tb + prox) / 3)
}

// bucket maps HH:MM onto a time-of-day bucket.
func (e *Extractor) bucket(startTime string) int {
	minute, ok := parseClock(startTime)
	if !ok {
		return e.tables.defaultBucket
	}
	for i, r := range e.tables.bucketRanges {
		if r.contains(minute) {
			return i
		}
	}
	return e.tables.defaultBucket
}

// examProximity is 0 on overlap with an exam range, 1 at or beyond the window
// and linear in between. The closest range wins.
func (e *Extractor) examProximity(start, end time.Time) float64 {
	if len(e.tables.examPeriods) == 0 {
		return 1
	}
	if end.Before(start) {
		start, end = end, start
	}
	minDays := math.Inf(1)
	for _, p := range e.tables.examPeriods {
		if !start.After(p.End) && !end.Before(p.Start) {
			return 0
		}
		var days float64
		if end.Before(p.Start) {
			days = p.Start.Sub(end).Hours() / hoursPerDay
		} else {
			days = start.Sub(p.End).Hours() / hoursPerDay
		}
		minDays = math.Min(minDays, days)
	}
	w := e.tables.examWindowDays
	if minDays >= w {
		return 1
	}
	return clamp01(1 - (w-minDays)/w)
}

// Structure averages category popularity and the triangular size fit. A
// missing or zero registration count yields the neutral 0.5.
func (e *Extractor) Structure(eventType string, registered *int) float64 {
	if registered == nil || *registered == 0 {
		return 0.5
	}
	popularity := clamp01(e.popularity(eventType))
	ideal := float64(e.tables.idealSize)
	reg := math.Max(1, float64(*registered))
	sizeFit := clamp01(1 - math.Abs(reg-ideal)/math.Max(ideal, 1))
	return (popularity + sizeFit) / 2
}

func (e *Extractor) popularity(eventType string) float64 {
	key := strings.ToLower(strings.TrimSpace(eventType))
	if w, ok := e.tables.categoryWeights[key]; ok {
		return w
	}
	return e.tables.defaultCategory
}

// Incentives sums the food and giveaway weights that apply.
func (e *Extractor) Incentives(food, giveaways bool) float64 {
	var s float64
	if food {
		s += e.tables.foodWeight
	}
	if giveaways {
		s += e.tables.giveawayWeight
	}
	return clamp01(s)
}

// Budgeting compares cost per attendee with the target. Spending that is
// missing, zero or negative scores exactly 0.
func (e *Extractor) Budgeting(spending *float64, attended *int) float64 {
	if spending == nil || *spending <= 0 || math.IsNaN(*spending) {
		return 0
	}
	att := 1.0
	if attended != nil && *attended > 1 {
		att = float64(*attended)
	}
	target := e.tables.targetCost
	overspend := math.Max(0, *spending/att-target)
	return clamp01(math.Exp(-overspend / target))
}

// Registration returns one of the two registration constants.
func (e *Extractor) Registration(required bool) float64 {
	if required {
		return e.tables.regRequired
	}
	return e.tables.regWalkIn
}

// Location returns the on-campus weight when text names a known venue and the
// off-campus weight otherwise, including when text is empty.
func (e *Extractor) Location(text string) float64 {
	l := strings.ToLower(text)
	if strings.TrimSpace(l) == "" {
		return e.tables.offCampusWeight
	}
	for _, v := range e.tables.venues {
		if strings.Contains(l, v) {
			return e.tables.onCampusWeight
		}
	}
	return e.tables.offCampusWeight
}

// Audience returns the audience slot, a placeholder unless WithAudience was used.
func (e *Extractor) Audience(ev model.RawEvent) model.Slot {
	return e.audience(ev)
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseDate returns the calendar date of s at UTC midnight.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return date(y, m, d), true
		}
	}
	return time.Time{}, false
}

// parseClock converts HH:MM or HH:MM:SS into minutes after midnight.
func parseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
