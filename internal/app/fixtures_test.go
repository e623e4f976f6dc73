package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/okian/compass/internal/adapters/repository"
	"github.com/okian/compass/internal/domain/model"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

var errStoreDown = errors.New("connection refused")

type eventSpec struct {
	id, date, clock, kind, location string
	registered, attended            int
	food, giveaways, required       bool
	spending                        float64
	rating                          float64
	ratings                         int
}

func (e eventSpec) raw() model.RawEvent {
	ev := model.RawEvent{
		ID:                   e.id,
		StartDate:            e.date,
		StartTime:            e.clock,
		EventType:            e.kind,
		Location:             e.location,
		RegistrationRequired: e.required,
		FoodProvided:         e.food,
		Giveaways:            e.giveaways,
		RegisteredCount:      intPtr(e.registered),
		AttendedCount:        intPtr(e.attended),
	}
	if e.spending > 0 {
		ev.Spending = floatPtr(e.spending)
	}
	if e.ratings > 0 {
		ev.RatingAvg = floatPtr(e.rating)
		ev.RatingCount = intPtr(e.ratings)
	}
	return ev
}

// history is a varied set of past events whose feature matrix has full rank.
func history() []model.RawEvent {
	specs := []eventSpec{
		{"h01", "2025-09-05", "18:00", "Social", "Thwing Atrium", 100, 90, true, false, false, 2000, 4.5, 20},
		{"h02", "2025-09-09", "12:30", "Tour", "Downtown gallery", 40, 15, false, true, true, 900, 3.0, 5},
		{"h03", "2025-09-13", "20:00", "Performance", "Tink Ballroom", 200, 150, true, true, false, 6000, 4.0, 40},
		{"h04", "2025-09-15", "08:00", "Outdoors", "KSL Oval", 30, 10, false, false, true, 0, 2.5, 3},
		{"h05", "2025-10-10", "17:30", "Luncheon", "Guilford House", 115, 100, true, false, true, 3000, 4.8, 50},
		{"h06", "2025-10-16", "19:00", "Other", "Cleveland Public Square", 60, 20, false, true, false, 400, 3.2, 8},
		{"h07", "2025-11-01", "23:00", "Social", "Thwing Ballroom", 150, 140, true, false, false, 7000, 4.1, 30},
		{"h08", "2025-11-05", "14:00", "Tour", "Art Museum", 20, 18, false, false, true, 100, 0, 0},
		{"h09", "2025-12-05", "18:30", "Performance", "Strosacker", 90, 45, true, true, false, 2500, 3.9, 15},
		{"h10", "2025-12-20", "13:00", "Outdoors", "Freiburger Field", 50, 35, false, true, true, 1500, 4.4, 9},
	}
	out := make([]model.RawEvent, len(specs))
	for i, s := range specs {
		out[i] = s.raw()
	}
	return out
}

// saturdaySocial is a Saturday evening social at an on-campus venue.
func saturdaySocial() model.RawEvent {
	return model.RawEvent{
		ID:                   "plan-a",
		StartDate:            "2025-11-08",
		StartTime:            "19:30",
		EventType:            "Social",
		RegisteredCount:      intPtr(115),
		AttendedCount:        intPtr(115),
		FoodProvided:         true,
		Spending:             floatPtr(4025),
		RegistrationRequired: false,
		Location:             "Thwing Atrium",
	}
}

// unitStats returns seven rows forming an identity design: the all-zero
// feature row labelled base and one unit row per feature labelled labels[i].
func unitStats(base float64, labels [model.ActiveFeatures]float64) []model.EventStats {
	rows := []model.EventStats{{EventID: "u0", Score: base}}
	for i, label := range labels {
		var a [model.ActiveFeatures]float64
		a[i] = 1
		rows = append(rows, model.EventStats{
			EventID: "u" + string(rune('1'+i)),
			Features: model.FeatureVector{
				Timing: a[0], Structure: a[1], Incentives: a[2],
				Location: a[3], Registration: a[4], Budgeting: a[5],
			},
			Score: label,
		})
	}
	return rows
}

// tickingClock advances one minute per call.
func tickingClock() func() time.Time {
	t := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

type failingSource struct{}

func (failingSource) HistoricalEvents(context.Context) ([]model.RawEvent, error) {
	return nil, errStoreDown
}

func (failingSource) Event(context.Context, string) (model.RawEvent, error) {
	return model.RawEvent{}, errStoreDown
}

type failingStats struct {
	failRead bool
}

func (f failingStats) UpsertStats(context.Context, model.EventStats) error { return errStoreDown }

func (f failingStats) AllStats(context.Context) ([]model.EventStats, error) {
	if f.failRead {
		return nil, errStoreDown
	}
	return nil, nil
}

// cancelingSource cancels the caller's context once it has handed out events.
type cancelingSource struct {
	events []model.RawEvent
	cancel context.CancelFunc
}

func (c cancelingSource) HistoricalEvents(context.Context) ([]model.RawEvent, error) {
	c.cancel()
	return c.events, nil
}

func (c cancelingSource) Event(context.Context, string) (model.RawEvent, error) {
	return model.RawEvent{}, repository.ErrNotFound
}
