package imports

import (
	"errors"
	"fmt"

	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

var (
	// ErrFatalBatch means the batch record could not be created and no row was processed.
	ErrFatalBatch = errors.New("import batch could not be created")

	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date format")
	// ErrTooManyRows rejects a submission above the configured row limit.
	ErrTooManyRows = fmt.Errorf("%w: too many rows", shared.ErrInvalidInput)
)

// FatalBatchError aborts a whole import.
type FatalBatchError struct {
	Err error
}

func (e *FatalBatchError) Error() string {
	return fmt.Sprintf("%v: %v", ErrFatalBatch, e.Err)
}

func (e *FatalBatchError) Unwrap() []error {
	return []error{ErrFatalBatch, e.Err}
}

// EntityResolutionError reports a failed lookup or creation of a client or company.
type EntityResolutionError struct {
	Entity string
	Name   string
	Err    error
}

func (e *EntityResolutionError) Error() string {
	return fmt.Sprintf("could not resolve %s %q: %v", e.Entity, e.Name, e.Err)
}

func (e *EntityResolutionError) Unwrap() error { return e.Err }

// UpsertError reports a rejected revenue write.
type UpsertError struct {
	Err error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("revenue upsert failed: %v", e.Err)
}

func (e *UpsertError) Unwrap() error { return e.Err }
