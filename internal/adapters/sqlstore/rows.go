package sqlstore

import (
	"math"
	"time"

	"github.com/okian/compass/internal/domain/model"
)

// eventRow holds the raw event columns shared by past_events and events.
type eventRow struct {
	ID                   string `gorm:"primaryKey;column:id"`
	StartDate            string
	EndDate              string
	StartTime            string
	EventType            string
	Location             string
	RegistrationRequired bool
	FoodProvided         bool
	Giveaways            bool
	Spending             *float64
	AttendedCount        *int
	RegisteredCount      *int
	RatingAvg            *float64
	RatingCount          *int
}

type pastEventRow struct {
	Event eventRow `gorm:"embedded"`
}

func (pastEventRow) TableName() string { return "past_events" }

type plannedEventRow struct {
	Event eventRow `gorm:"embedded"`
}

func (plannedEventRow) TableName() string { return "events" }

// statsRow stores unknown values as NULL.
type statsRow struct {
	EventID          string `gorm:"primaryKey;column:event_id"`
	Timing           *float64
	Structure        *float64
	Incentives       *float64
	Location         *float64
	Registration     *float64
	Budgeting        *float64
	AttendanceRate   *float64
	NormalizedRating *float64
	Score            *float64
	Updated          time.Time
}

func (statsRow) TableName() string { return "event_stats" }

func toEventRow(ev model.RawEvent) eventRow {
	return eventRow{
		ID:                   ev.ID,
		StartDate:            ev.StartDate,
		EndDate:              ev.EndDate,
		StartTime:            ev.StartTime,
		EventType:            ev.EventType,
		Location:             ev.Location,
		RegistrationRequired: ev.RegistrationRequired,
		FoodProvided:         ev.FoodProvided,
		Giveaways:            ev.Giveaways,
		Spending:             ev.Spending,
		AttendedCount:        ev.AttendedCount,
		RegisteredCount:      ev.RegisteredCount,
		RatingAvg:            ev.RatingAvg,
		RatingCount:          ev.RatingCount,
	}
}

func (r eventRow) toModel() model.RawEvent {
	return model.RawEvent{
		ID:                   r.ID,
		StartDate:            r.StartDate,
		EndDate:              r.EndDate,
		StartTime:            r.StartTime,
		EventType:            r.EventType,
		Location:             r.Location,
		RegistrationRequired: r.RegistrationRequired,
		FoodProvided:         r.FoodProvided,
		Giveaways:            r.Giveaways,
		Spending:             r.Spending,
		AttendedCount:        r.AttendedCount,
		RegisteredCount:      r.RegisteredCount,
		RatingAvg:            r.RatingAvg,
		RatingCount:          r.RatingCount,
	}
}

func toStatsRow(s model.EventStats) statsRow {
	return statsRow{
		EventID:          s.EventID,
		Timing:           nullable(s.Features.Timing),
		Structure:        nullable(s.Features.Structure),
		Incentives:       nullable(s.Features.Incentives),
		Location:         nullable(s.Features.Location),
		Registration:     nullable(s.Features.Registration),
		Budgeting:        nullable(s.Features.Budgeting),
		AttendanceRate:   nullable(s.AttendanceRate),
		NormalizedRating: nullable(s.NormalizedRating),
		Score:            nullable(s.Score),
		Updated:          s.Updated.UTC(),
	}
}

func (r statsRow) toModel() model.EventStats {
	return model.EventStats{
		EventID: r.EventID,
		Features: model.FeatureVector{
			Timing:       value(r.Timing),
			Structure:    value(r.Structure),
			Incentives:   value(r.Incentives),
			Audience:     model.Unimplemented(),
			Budgeting:    value(r.Budgeting),
			Registration: value(r.Registration),
			Location:     value(r.Location),
		},
		AttendanceRate:   value(r.AttendanceRate),
		NormalizedRating: value(r.NormalizedRating),
		Score:            value(r.Score),
		Updated:          r.Updated.UTC(),
	}
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
