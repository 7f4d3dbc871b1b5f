package lending

import (
	"errors"
	"fmt"
)

// The four error kinds. Every error returned by an engine wraps exactly one
// of these, so callers branch with errors.Is to decide between form re-entry,
// a conflict message, or a generic failure.
var (
	// ErrNotFound indicates that a referenced book or loan does not exist,
	// or is not in the state the operation expects.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed or out-of-range input, such as a due
	// date that is not in the future or a return date before the issue date.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates an attempt that would violate an invariant, such
	// as issuing a book that is already issued.
	ErrConflict = errors.New("conflict")

	// ErrOperationFailed indicates a store-level failure (commit conflict,
	// connection loss). The operation had no partial effect and may be
	// re-attempted from scratch by the caller.
	ErrOperationFailed = errors.New("operation failed")
)

// Specific errors, each wrapping its kind.
var (
	ErrBookNotFound       = fmt.Errorf("%w: book does not exist", ErrNotFound)
	ErrLoanNotFound       = fmt.Errorf("%w: loan does not exist", ErrNotFound)
	ErrNoActiveLoan       = fmt.Errorf("%w: no active loan", ErrNotFound)
	ErrBookNotAvailable   = fmt.Errorf("%w: book not available", ErrConflict)
	ErrDueDateNotInFuture = fmt.Errorf("%w: due date must be in the future", ErrValidation)
	ErrReturnBeforeIssue  = fmt.Errorf("%w: return date precedes issue date", ErrValidation)
	ErrReturnInFuture     = fmt.Errorf("%w: return date is in the future", ErrValidation)
	ErrInvalidDate        = fmt.Errorf("%w: invalid calendar date", ErrValidation)
)

// KindOf reports which of the four kinds err belongs to, for logging and
// HTTP status mapping. Unclassified errors are reported as ErrOperationFailed.
func KindOf(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrConflict):
		return ErrConflict
	default:
		return ErrOperationFailed
	}
}

// KindName returns a stable string identifier for the kind of err,
// suitable for metrics labels and API payloads.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrNotFound:
		return "not_found"
	case ErrValidation:
		return "validation"
	case ErrConflict:
		return "conflict"
	default:
		return "operation_failed"
	}
}
