package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/compass/internal/app"
	"github.com/okian/compass/internal/domain/regression"
)

// Sentinel kinds for API errors.
var (
	ErrServe      = errors.New("http serve failed")
	ErrBadRequest = errors.New("bad request")
)

// Error codes written in the code field of error bodies.
const (
	codeBadRequest       = "bad_request"
	codeNotFound         = "not_found"
	codeValidation       = "validation_error"
	codeInsufficientData = "insufficient_data"
	codeSingularMatrix   = "singular_matrix"
	codeStoreUnavailable = "store_unavailable"
	codeCanceled         = "canceled"
	codeTimeout          = "timeout"
	codeInternal         = "internal_error"
)

// statusClientClosedRequest reports a request abandoned by its caller.
const statusClientClosedRequest = 499

// statusFor maps a service error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, service.ErrInsufficientData):
		return http.StatusUnprocessableEntity, codeInsufficientData
	case errors.Is(err, service.ErrSingularMatrix):
		return http.StatusUnprocessableEntity, codeSingularMatrix
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, codeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeTimeout
	case errors.Is(err, service.ErrUpstreamStore), errors.Is(err, service.ErrDownstreamStore):
		return http.StatusBadGateway, codeStoreUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	MinRequired *int   `json:"min_required,omitempty"`
	SampleSize  *int   `json:"sample_size,omitempty"`
}

func newErrorResponse(code string, err error) errorResponse {
	resp := errorResponse{Code: code, Message: err.Error()}
	var insufficient *regression.InsufficientDataError
	if errors.As(err, &insufficient) {
		resp.MinRequired = &insufficient.MinRequired
		resp.SampleSize = &insufficient.SampleSize
	}
	return resp
}
