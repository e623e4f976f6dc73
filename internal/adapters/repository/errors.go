package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("event not found")
	ErrInvalidEvent = errors.New("invalid event")
)
