package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleRefresh handles POST /stats/refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.RefreshStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]statsRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, newStatsRow(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleModel handles GET /model.
func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.FitModel(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newModelResponse(m))
}

// handlePredict handles GET /predict/{id}.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.deps.Predict(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, predictionResponse{Prediction: p, Model: newModelResponse(p.Model)})
}

// handleFeatures handles GET /features/{id}.
func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fv, err := s.deps.Features(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fv)
}

func eventID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		return "", fmt.Errorf("%w: missing event id", ErrBadRequest)
	}
	return id, nil
}
