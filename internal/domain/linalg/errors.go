package linalg

import "errors"

// Sentinel kinds for matrix errors.
var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrSingularMatrix    = errors.New("singular matrix")
)
