package persistence

import "errors"

var (
	// ErrNotFound is returned when no snapshot has been persisted yet.
	ErrNotFound = errors.New("persistence: not found")
)
