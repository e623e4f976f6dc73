package seed

import "errors"

// Sentinel kinds for dataset errors.
var (
	ErrDecode      = errors.New("decode dataset")
	ErrInvalid     = errors.New("invalid dataset")
	ErrDuplicateID = errors.New("duplicate event id")
)
