// Package seed produces event datasets for local runs: a deterministic
// synthetic history and a JSON import/export format.
package seed

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/compass/internal/domain/features"
	"github.com/okian/compass/internal/domain/model"
)

// Generation defaults.
const (
	DefaultPastEvents    = 60
	DefaultPlannedEvents = 5
	DefaultSeed          = 1
	daysBetweenEvents    = 3
	missingRatingChance  = 0.1
	missingSpendChance   = 0.15
	offCampusChance      = 0.3
)

var (
	categories  = []string{"performance", "social", "tour", "luncheon", "outdoors", "other"}
	startTimes  = []string{"09:30", "12:00", "15:00", "18:00", "19:30", "22:30"}
	offCampus   = []string{"Cleveland Museum of Art", "Edgewater Park", "Downtown Playhouse"}
	idNamespace = uuid.MustParse("6f1c3b5e-3d0a-4c8e-9d5e-2b7f7c1a4e10")
)

// Dataset groups past events, which carry outcomes, with planned events,
// which do not.
type Dataset struct {
	PastEvents    []model.RawEvent `json:"past_events"`
	PlannedEvents []model.RawEvent `json:"planned_events"`
}

// Option configures a Generator.
type Option func(*Generator)

// WithPastEvents sets how many historical events are generated.
func WithPastEvents(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.past = n
		}
	}
}

// WithPlannedEvents sets how many planned events are generated.
func WithPlannedEvents(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.planned = n
		}
	}
}

// WithSeed sets the random seed. Equal seeds give equal datasets.
func WithSeed(seed uint64) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithStart sets the date of the first historical event.
func WithStart(t time.Time) Option {
	return func(g *Generator) {
		if !t.IsZero() {
			y, m, d := t.Date()
			g.start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
	}
}

// WithVenues sets the on-campus venues events are placed in.
func WithVenues(venues ...string) Option {
	return func(g *Generator) {
		if len(venues) > 0 {
			g.venues = append([]string(nil), venues...)
		}
	}
}

// Generator builds synthetic datasets whose outcomes loosely follow the
// event attributes, so a fitted model has signal to find.
type Generator struct {
	past    int
	planned int
	seed    uint64
	start   time.Time
	venues  []string
}

// NewGenerator returns a generator with opts applied.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		past:    DefaultPastEvents,
		planned: DefaultPlannedEvents,
		seed:    DefaultSeed,
		start:   time.Date(2025, time.January, 13, 0, 0, 0, 0, time.UTC),
		venues:  features.NewTables().Venues(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a fresh dataset. Planned events follow the last past event.
func (g *Generator) Generate() Dataset {
	rng := rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))
	ds := Dataset{
		PastEvents:    make([]model.RawEvent, 0, g.past),
		PlannedEvents: make([]model.RawEvent, 0, g.planned),
	}
	day := g.start
	for i := 0; i < g.past; i++ {
		ev := g.base(rng, "past", i, day)
		g.outcome(rng, &ev, day)
		ds.PastEvents = append(ds.PastEvents, ev)
		day = day.AddDate(0, 0, daysBetweenEvents+rng.IntN(3))
	}
	for i := 0; i < g.planned; i++ {
		day = day.AddDate(0, 0, daysBetweenEvents+rng.IntN(3))
		ds.PlannedEvents = append(ds.PlannedEvents, g.base(rng, "planned", i, day))
	}
	return ds
}

func (g *Generator) base(rng *rand.Rand, kind string, i int, day time.Time) model.RawEvent {
	ev := model.RawEvent{
		ID:                   uuid.NewSHA1(idNamespace, fmt.Appendf(nil, "%d/%s/%d", g.seed, kind, i)).String(),
		StartDate:            day.Format(time.DateOnly),
		StartTime:            startTimes[rng.IntN(len(startTimes))],
		EventType:            categories[rng.IntN(len(categories))],
		RegistrationRequired: rng.IntN(2) == 0,
		FoodProvided:         rng.Float64() < 0.6,
		Giveaways:            rng.Float64() < 0.35,
	}
	if rng.Float64() < offCampusChance || len(g.venues) == 0 {
		ev.Location = offCampus[rng.IntN(len(offCampus))]
	} else {
		ev.Location = g.venues[rng.IntN(len(g.venues))]
	}
	if rng.IntN(5) == 0 {
		ev.EndDate = day.AddDate(0, 0, 1+rng.IntN(2)).Format(time.DateOnly)
	}
	registered := 20 + rng.IntN(220)
	ev.RegisteredCount = &registered
	return ev
}

// outcome fills attendance, spending and ratings of a past event.
func (g *Generator) outcome(rng *rand.Rand, ev *model.RawEvent, day time.Time) {
	rate := 0.45 + 0.1*rng.NormFloat64()
	if ev.FoodProvided {
		rate += 0.15
	}
	if ev.Giveaways {
		rate += 0.05
	}
	if wd := day.Weekday(); wd == time.Friday || wd == time.Saturday {
		rate += 0.1
	}
	if ev.StartTime == "09:30" {
		rate -= 0.15
	}
	rate = math.Max(0.05, math.Min(1, rate))
	attended := int(math.Round(rate * float64(*ev.RegisteredCount)))
	ev.AttendedCount = &attended

	if rng.Float64() >= missingSpendChance {
		spend := math.Round(float64(attended)*(15+40*rng.Float64())*100) / 100
		ev.Spending = &spend
	}
	if rng.Float64() >= missingRatingChance {
		avg := math.Round(math.Max(1, math.Min(5, 1.5+3*rate+0.4*rng.NormFloat64()))*10) / 10
		count := 1 + rng.IntN(max(1, attended/2))
		ev.RatingAvg = &avg
		ev.RatingCount = &count
	}
}
