/*
errors.go - Centralized error taxonomy for the fuel engine

PURPOSE:
  All error kinds in one place. Store implementations map driver-level
  failures onto these kinds; callers branch on them with errors.Is or
  the helpers at the bottom.

ERROR KINDS:
  ErrNotFound         referenced entity absent or not owned by the caller
  ErrValidation       duplicate name, non-positive volume, malformed input
  ErrConstraint       an invariant would be broken (e.g. concurrent default
                      race detected by the partial unique index)
  ErrTransientStorage connectivity/timeout - safe to retry with backoff
  ErrFatalStorage     schema/corruption - not retried, surfaced to operators

USAGE:
  if fuel.IsNotFound(err) { ... }
  var verr *fuel.ValidationError
  if errors.As(err, &verr) { ... verr.Field ... }

SEE ALSO:
  - store.go: Operations returning these errors
  - store/sqlite: Driver-error mapping
*/
package fuel

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced entity does not exist or is
	// not owned by the caller. Ownership misses are deliberately not a
	// distinct "forbidden" case, to avoid existence probing.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed or rule-breaking input.
	ErrValidation = errors.New("validation failed")

	// ErrConstraint is returned when committing would break a stored
	// invariant, e.g. two concurrent set-default calls for one account.
	ErrConstraint = errors.New("constraint violation")

	// ErrTransientStorage is returned for connectivity or timeout failures.
	// This is the only kind a caller should retry automatically.
	ErrTransientStorage = errors.New("transient storage error")

	// ErrFatalStorage is returned for schema or corruption failures.
	ErrFatalStorage = errors.New("fatal storage error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry entity context
// =============================================================================

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Entity string // "account", "vehicle", "refuel entry"
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError identifies the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConstraintError identifies the violated invariant.
type ConstraintError struct {
	Constraint string
	Cause      error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint violated: %s: %v", e.Constraint, e.Cause)
}

func (e *ConstraintError) Unwrap() error { return ErrConstraint }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether the error is due to invalid client input.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsRetryable reports whether a blind retry with backoff may succeed.
// Only transient storage failures qualify; everything else is terminal
// for the current request.
func IsRetryable(err error) bool { return errors.Is(err, ErrTransientStorage) }
