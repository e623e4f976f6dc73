// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	service "github.com/okian/compass/internal/app"
	"github.com/okian/compass/internal/domain/model"
	"github.com/okian/compass/pkg/logger"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	RefreshStats(ctx context.Context) (service.RefreshResult, error)
	FitModel(ctx context.Context) (model.RegressionModel, error)
	Predict(ctx context.Context, id string) (model.Prediction, error)
	Features(ctx context.Context, id string) (model.FeatureVector, error)
	Stats(ctx context.Context) ([]model.EventStats, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and error logs.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the pipeline API.
type Server struct {
	deps   Dependencies
	logger logger.Logger
	health *HealthHandler
}

// NewServer creates a new API server over deps.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:   deps,
		logger: logger.NewNop(),
		health: NewHealthHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns a chi router with every route and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// Register attaches middleware and routes to r.
func (s *Server) Register(r chi.Router) {
	r.Use(requestIDMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.health.HandleHealth)
	r.Get("/metrics", s.health.HandleMetrics)
	r.Get("/stats", s.handleStats)
	r.Post("/stats/refresh", s.handleRefresh)
	r.Get("/model", s.handleModel)
	r.Get("/predict/{id}", s.handlePredict)
	r.Get("/features/{id}", s.handleFeatures)
}

// modelResponse is the read shape of a fitted model.
type modelResponse struct {
	SampleSize   int                `json:"sample_size"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
}

func newModelResponse(m model.RegressionModel) modelResponse {
	return modelResponse{
		SampleSize:   m.SampleSize,
		Intercept:    m.Intercept,
		Coefficients: m.Named(),
	}
}

type predictionResponse struct {
	model.Prediction
	Model modelResponse `json:"model"`
}

// statsRow mirrors model.EventStats with NaN rendered as null.
type statsRow struct {
	EventID          string              `json:"event_id"`
	Features         model.FeatureVector `json:"features"`
	AttendanceRate   *float64            `json:"attendance_rate"`
	NormalizedRating *float64            `json:"normalized_rating"`
	Score            *float64            `json:"score"`
	Updated          time.Time           `json:"updated"`
}

func newStatsRow(s model.EventStats) statsRow {
	return statsRow{
		EventID:          s.EventID,
		Features:         s.Features,
		AttendanceRate:   finiteOrNil(s.AttendanceRate),
		NormalizedRating: finiteOrNil(s.NormalizedRating),
		Score:            finiteOrNil(s.Score),
		Updated:          s.Updated,
	}
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status and code and writes the error body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("requestID", RequestID(r.Context())),
			logger.Error(err),
		)
	}
	writeJSON(w, status, newErrorResponse(code, err))
}
