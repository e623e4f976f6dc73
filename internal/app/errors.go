package service

import (
	"errors"

	"github.com/okian/compass/internal/adapters/repository"
	"github.com/okian/compass/internal/domain/linalg"
	"github.com/okian/compass/internal/domain/model"
	"github.com/okian/compass/internal/domain/regression"
)

// Sentinel kinds surfaced by the service. Store failures carry one of the two
// store kinds plus the underlying cause.
var (
	ErrNotFound         = repository.ErrNotFound
	ErrUpstreamStore    = errors.New("upstream store error")
	ErrDownstreamStore  = errors.New("downstream store error")
	ErrInsufficientData = regression.ErrInsufficientData
	ErrSingularMatrix   = linalg.ErrSingularMatrix
	ErrValidation       = model.ErrValidation
)
