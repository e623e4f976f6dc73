package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/compass/internal/adapters/repository"
	service "github.com/okian/compass/internal/app"
	"github.com/okian/compass/internal/config"
	"github.com/okian/compass/internal/domain/model"
	"github.com/okian/compass/internal/seed"
	"github.com/okian/compass/pkg/logger"
)

func run(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestPipelineCommands(t *testing.T) {
	t.Setenv(config.EnvFile, "")
	db := filepath.Join(t.TempDir(), "compass.db")
	planned := seed.NewGenerator().Generate().PlannedEvents[0].ID

	convey.Convey("Given a database seeded with the default history", t, func() {
		_, err := run("seed", "--db", db)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When fitting a model", func() {
			out, err := run("fit", "--db", db)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then every coefficient is printed", func() {
				var m modelOutput
				convey.So(json.Unmarshal([]byte(out), &m), convey.ShouldBeNil)
				convey.So(m.SampleSize, convey.ShouldEqual, seed.DefaultPastEvents)
				convey.So(len(m.Coefficients), convey.ShouldEqual, model.ActiveFeatures)
			})
		})

		convey.Convey("When predicting a planned event", func() {
			out, err := run("predict", planned, "--db", db)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the score lies on the five-point scale", func() {
				var p struct {
					EventID        string  `json:"event_id"`
					PredictedScore float64 `json:"predicted_score"`
				}
				convey.So(json.Unmarshal([]byte(out), &p), convey.ShouldBeNil)
				convey.So(p.EventID, convey.ShouldEqual, planned)
				convey.So(p.PredictedScore, convey.ShouldBeBetweenOrEqual, model.MinScore, model.MaxScore)
			})
		})

		convey.Convey("When refreshing again", func() {
			out, err := run("refresh", "--db", db)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then every past event is upserted", func() {
				var res service.RefreshResult
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.Upserted, convey.ShouldEqual, seed.DefaultPastEvents)
				convey.So(res.Skipped, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When asking for the features of an unknown event", func() {
			_, err := run("features", "missing", "--db", db)

			convey.Convey("Then the not-found error surfaces", func() {
				convey.So(errors.Is(err, service.ErrNotFound), convey.ShouldBeTrue)
			})
		})
	})
}

func TestSeedExportAndImport(t *testing.T) {
	t.Setenv(config.EnvFile, "")
	dir := t.TempDir()
	file := filepath.Join(dir, "events.json")
	db := filepath.Join(dir, "imported.db")

	convey.Convey("Given a dataset exported to a file", t, func() {
		_, err := run("seed", "--out", file, "--past", "12", "--planned", "1", "--seed", "9")
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When it is imported", func() {
			_, err := run("import", file, "--db", db)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then its planned event can be scored", func() {
				ds := seed.NewGenerator(seed.WithPastEvents(12), seed.WithPlannedEvents(1), seed.WithSeed(9)).Generate()
				_, err := run("features", ds.PlannedEvents[0].ID, "--db", db)
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a file that does not exist", t, func() {
		_, err := run("import", filepath.Join(dir, "nope.json"))

		convey.Convey("Then import fails", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestCommandErrors(t *testing.T) {
	t.Setenv(config.EnvFile, "")

	convey.Convey("Given an empty in-memory store", t, func() {
		convey.Convey("When fitting", func() {
			_, err := run("fit")

			convey.Convey("Then there is not enough data", func() {
				convey.So(errors.Is(err, service.ErrInsufficientData), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When predict is called without an id", func() {
			_, err := run("predict")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv(config.EnvFile, "")
	t.Setenv(config.EnvPrefix+"LOG_LEVEL", "loud")

	convey.Convey("Given an invalid log level in the environment", t, func() {
		_, err := run("refresh")

		convey.Convey("Then the command fails before running", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestRouter(t *testing.T) {
	convey.Convey("Given a session over a memory store", t, func() {
		store := repository.NewMemoryStore()
		s := &session{
			cfg:   config.New(),
			log:   logger.NewNop(),
			store: store,
			svc:   service.New(store, store),
		}
		h := s.router()

		for _, path := range []string{"/healthz", "/openapi.yaml", "/api-docs", "/metrics", "/stats"} {
			convey.Convey("Then GET "+path+" succeeds", func() {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			})
		}

		convey.Convey("Then GET /model reports insufficient data", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/model", nil))
			convey.So(w.Code, convey.ShouldEqual, http.StatusUnprocessableEntity)
		})
	})
}

func TestServe(t *testing.T) {
	convey.Convey("Given a session listening on a free port", t, func() {
		var logs bytes.Buffer
		store := repository.NewMemoryStore()
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		s := &session{
			cfg:   cfg,
			log:   logger.New(&logs, logger.FormatJSON, slog.LevelInfo),
			store: store,
			svc:   service.New(store, store),
		}

		convey.Convey("When the context is canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := s.serve(ctx, true)

			convey.Convey("Then the server stops cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(logs.String(), convey.ShouldContainSubstring, "server stopped")
			})

			convey.Convey("And the startup log records the store and preload", func() {
				convey.So(logs.String(), convey.ShouldContainSubstring, `"store":"memory"`)
				convey.So(logs.String(), convey.ShouldContainSubstring, `"seeded":true`)
			})
		})
	})
}
