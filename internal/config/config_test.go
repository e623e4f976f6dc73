package config_test

import (
	"errors"
	"testing"

	"github.com/okian/compass/internal/config"
	"github.com/okian/compass/internal/domain/features"
	"github.com/okian/compass/internal/domain/outcome"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have the scoring defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.DatabasePath, convey.ShouldBeEmpty)
			convey.So(cfg.IdealSize, convey.ShouldEqual, 115)
			convey.So(cfg.TargetCostPerAttendee, convey.ShouldEqual, 35)
			convey.So(cfg.ExamWindowDays, convey.ShouldEqual, 5)
			convey.So(cfg.AttendanceWeight, convey.ShouldEqual, 0.6)
			convey.So(cfg.RatingWeight, convey.ShouldEqual, 0.4)
			convey.So(cfg.PivotTolerance, convey.ShouldEqual, 1e-10)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then its tables match the built-in tables", func() {
			tables, err := cfg.Tables()
			convey.So(err, convey.ShouldBeNil)
			convey.So(tables.IdealSize(), convey.ShouldEqual, features.NewTables().IdealSize())
			convey.So(tables.ExamPeriods(), convey.ShouldResemble, features.NewTables().ExamPeriods())
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid values", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":         func(c *config.Config) { c.Addr = "" },
			"unknown level":      func(c *config.Config) { c.LogLevel = "loud" },
			"unknown format":     func(c *config.Config) { c.LogFormat = "xml" },
			"zero ideal size":    func(c *config.Config) { c.IdealSize = 0 },
			"negative target":    func(c *config.Config) { c.TargetCostPerAttendee = -1 },
			"prior out of scale": func(c *config.Config) { c.RatingPriorMean = 6 },
			"zero weights":       func(c *config.Config) { c.AttendanceWeight, c.RatingWeight = 0, 0 },
			"zero tolerance":     func(c *config.Config) { c.PivotTolerance = 0 },
			"bad exam date": func(c *config.Config) {
				c.ExamPeriods = []config.ExamPeriod{{Start: "13/10/2025", End: "2025-10-18"}}
			},
			"reversed exam period": func(c *config.Config) {
				c.ExamPeriods = []config.ExamPeriod{{Start: "2025-10-18", End: "2025-10-13"}}
			},
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)

			convey.Convey("Then "+name+" is rejected as invalid config", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func TestConfig_Builders(t *testing.T) {
	convey.Convey("Given a customized config", t, func() {
		cfg := config.New()
		cfg.IdealSize = 50
		cfg.ExamWindowDays = 10
		cfg.ExamPeriods = []config.ExamPeriod{{Start: "2026-05-01", End: "2026-05-08"}}
		cfg.RatingPriorCount = 2
		cfg.AttendanceWeight, cfg.RatingWeight = 0, 1

		convey.Convey("When building the tables", func() {
			tables, err := cfg.Tables()
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then they carry the configured values", func() {
				convey.So(tables.IdealSize(), convey.ShouldEqual, 50)
				periods := tables.ExamPeriods()
				convey.So(len(periods), convey.ShouldEqual, 1)
				convey.So(periods[0].Start.Format("2006-01-02"), convey.ShouldEqual, "2026-05-01")
			})
		})

		convey.Convey("When building scorer options", func() {
			opts := cfg.ScorerOptions()

			convey.Convey("Then the scorer uses the configured weights", func() {
				scorer := outcome.New(opts...)
				convey.So(scorer.FiveScale(1, 0), convey.ShouldEqual, 1)
				convey.So(scorer.FiveScale(0, 1), convey.ShouldEqual, 5)
				convey.So(len(cfg.EngineOptions()), convey.ShouldEqual, 1)
			})
		})
	})
}
