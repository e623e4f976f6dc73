// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// RawEvent is an event record as provided by the upstream source.
// Pointer fields are optional; nil means the value was never recorded.
type RawEvent struct {
	ID                   string   `json:"id" validate:"required"`
	StartDate            string   `json:"start_date,omitempty"` // YYYY-MM-DD or RFC3339
	EndDate              string   `json:"end_date,omitempty"`
	StartTime            string   `json:"start_time,omitempty"` // HH:MM, 24h clock
	EventType            string   `json:"event_type,omitempty"`
	Location             string   `json:"location,omitempty"`
	RegistrationRequired bool     `json:"registration_required"`
	FoodProvided         bool     `json:"food_provided"`
	Giveaways            bool     `json:"giveaways"`
	Spending             *float64 `json:"spending,omitempty"`
	AttendedCount        *int     `json:"attended_count,omitempty" validate:"omitempty,gte=0"`
	RegisteredCount      *int     `json:"registered_count,omitempty" validate:"omitempty,gte=0"`
	RatingAvg            *float64 `json:"rating_avg,omitempty" validate:"omitempty,gte=0,lte=5"`
	RatingCount          *int     `json:"rating_count,omitempty" validate:"omitempty,gte=0"`
}

// Slot is a feature position that may not have a real scorer behind it yet.
// An unimplemented slot always carries a zero value.
type Slot struct {
	Value       float64 `json:"value"`
	Implemented bool    `json:"implemented"`
}

// Unimplemented returns the placeholder slot.
func Unimplemented() Slot { return Slot{} }

// ActiveFeatures is the number of features that enter the regression.
const ActiveFeatures = 6

// FeatureNames lists the active features in canonical order.
var FeatureNames = [ActiveFeatures]string{
	"timing", "structure", "incentives", "location", "registration", "budgeting",
}

// FeatureVector is the normalized representation of an event.
type FeatureVector struct {
	Timing       float64 `json:"timing"`
	Structure    float64 `json:"structure"`
	Incentives   float64 `json:"incentives"`
	Audience     Slot    `json:"audience"`
	Budgeting    float64 `json:"budgeting"`
	Registration float64 `json:"registration"`
	Location     float64 `json:"location"`
}

// Active returns the regression features in FeatureNames order.
func (f FeatureVector) Active() [ActiveFeatures]float64 {
	return [ActiveFeatures]float64{
		f.Timing, f.Structure, f.Incentives, f.Location, f.Registration, f.Budgeting,
	}
}

// EventStats is the persisted per-event scoring row for a historical event.
type EventStats struct {
	EventID          string
	Features         FeatureVector
	AttendanceRate   float64
	NormalizedRating float64
	Score            float64 // 1..5 label; NaN when unknown
	Updated          time.Time
}

// Usable reports whether every active feature and the label are finite.
func (s EventStats) Usable() bool {
	if !finite(s.Score) {
		return false
	}
	for _, v := range s.Features.Active() {
		if !finite(v) {
			return false
		}
	}
	return true
}

// SameValues reports whether two rows carry identical computed values,
// ignoring the Updated stamp.
func (s EventStats) SameValues(o EventStats) bool {
	a, b := s, o
	a.Updated, b.Updated = time.Time{}, time.Time{}
	return a.EventID == b.EventID &&
		a.Features == b.Features &&
		sameFloat(a.AttendanceRate, b.AttendanceRate) &&
		sameFloat(a.NormalizedRating, b.NormalizedRating) &&
		sameFloat(a.Score, b.Score)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}
