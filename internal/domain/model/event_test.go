package model_test

import (
	"errors"
	"math"
	"testing"
	"time"

	model "github.com/okian/compass/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestFeatureVector(t *testing.T) {
	convey.Convey("Given a feature vector", t, func() {
		fv := model.FeatureVector{
			Timing: 0.1, Structure: 0.2, Incentives: 0.3,
			Audience:  model.Unimplemented(),
			Budgeting: 0.6, Registration: 0.5, Location: 0.4,
		}

		convey.Convey("Then Active returns the six regression features in canonical order", func() {
			convey.So(fv.Active(), convey.ShouldResemble, [6]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})
		})

		convey.Convey("And the audience slot is an unimplemented zero", func() {
			convey.So(fv.Audience.Implemented, convey.ShouldBeFalse)
			convey.So(fv.Audience.Value, convey.ShouldEqual, 0)
		})
	})
}

func TestEventStats(t *testing.T) {
	convey.Convey("Given an event stats row", t, func() {
		row := model.EventStats{
			EventID:  "e1",
			Features: model.FeatureVector{Timing: 0.5, Structure: 0.5, Incentives: 0.7, Budgeting: 1, Registration: 0.36, Location: 0.729},
			Score:    4,
			Updated:  time.Unix(100, 0),
		}

		convey.Convey("When every value is finite", func() {
			convey.So(row.Usable(), convey.ShouldBeTrue)
		})

		convey.Convey("When the score is unknown", func() {
			row.Score = math.NaN()
			convey.So(row.Usable(), convey.ShouldBeFalse)
		})

		convey.Convey("When a feature is infinite", func() {
			row.Features.Timing = math.Inf(1)
			convey.So(row.Usable(), convey.ShouldBeFalse)
		})

		convey.Convey("When comparing with a copy stamped at another time", func() {
			other := row
			other.Updated = time.Unix(200, 0)
			convey.So(row.SameValues(other), convey.ShouldBeTrue)
		})

		convey.Convey("When comparing with a row whose label changed", func() {
			other := row
			other.Score = 5
			convey.So(row.SameValues(other), convey.ShouldBeFalse)
		})
	})
}

func TestRegressionModel(t *testing.T) {
	convey.Convey("Given a regression model", t, func() {
		m := model.RegressionModel{Intercept: 1, Coefficients: [6]float64{1, 2, 3, 4, 5, 6}}
		fv := model.FeatureVector{Timing: 1, Structure: 1, Incentives: 1, Location: 1, Registration: 1, Budgeting: 1}

		convey.Convey("Then Apply sums the intercept and weighted features", func() {
			convey.So(m.Apply(fv), convey.ShouldEqual, 22)
		})

		convey.Convey("And Named keys the coefficients by feature", func() {
			named := m.Named()
			convey.So(named["timing"], convey.ShouldEqual, 1)
			convey.So(named["budgeting"], convey.ShouldEqual, 6)
			convey.So(len(named), convey.ShouldEqual, 6)
		})

		convey.Convey("And ClampScore bounds values to the five-point scale", func() {
			convey.So(model.ClampScore(22), convey.ShouldEqual, 5)
			convey.So(model.ClampScore(-3), convey.ShouldEqual, 1)
			convey.So(model.ClampScore(2.5), convey.ShouldEqual, 2.5)
		})
	})
}

func TestRawEventValidate(t *testing.T) {
	convey.Convey("Given raw events", t, func() {
		convey.Convey("When only the id is present", func() {
			err := model.RawEvent{ID: "e1"}.Validate()
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("When the id is missing", func() {
			err := model.RawEvent{}.Validate()
			convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)

			var verr *model.ValidationError
			convey.So(errors.As(err, &verr), convey.ShouldBeTrue)
			convey.So(verr.Fields[0].Field, convey.ShouldEqual, "ID")
			convey.So(verr.Fields[0].Tag, convey.ShouldEqual, "required")
		})

		convey.Convey("When counts are negative and the rating is out of range", func() {
			err := model.RawEvent{
				ID:              "e2",
				RegisteredCount: intPtr(-4),
				RatingAvg:       floatPtr(7),
			}.Validate()

			var verr *model.ValidationError
			convey.So(errors.As(err, &verr), convey.ShouldBeTrue)
			convey.So(len(verr.Fields), convey.ShouldEqual, 2)
			convey.So(err.Error(), convey.ShouldContainSubstring, "RegisteredCount")
			convey.So(err.Error(), convey.ShouldContainSubstring, "RatingAvg")
		})

		convey.Convey("When optional fields are malformed strings", func() {
			err := model.RawEvent{ID: "e3", StartDate: "not-a-date", StartTime: "25:99"}.Validate()
			convey.So(err, convey.ShouldBeNil)
		})
	})
}
