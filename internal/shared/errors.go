package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks caller supplied data that failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInUse is returned when a record is still referenced by revenue rows.
	ErrInUse = errors.New("resource still referenced")
	// ErrConflict marks a write that collides with an existing natural key.
	ErrConflict = errors.New("conflict")
)
