package storage

import "errors"

// Storage errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert violates a natural-key
	// uniqueness constraint (e.g. one copy trade per source signature).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPositionClosed is returned when a mutation targets a position
	// that is no longer open.
	ErrPositionClosed = errors.New("position closed")
)
