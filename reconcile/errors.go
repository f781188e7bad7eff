/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine itself never fails on bad rows: per-row anomalies are counted in
  Diagnostics and the row is dropped. Errors here describe conditions the
  caller must act on (no data, bad as-of input, unknown lookups).

ERROR CATEGORIES:
  1. Data errors - the source tables could not be loaded at all
  2. Input errors - as-of date or month name the caller supplied is invalid
  3. Lookup errors - a requested entity does not exist in the result

USAGE:
  if errors.Is(err, reconcile.ErrDataUnavailable) {
      // 503, the core was never invoked
  }

SEE ALSO:
  - ingest/errors.go: SourceError and ColumnError wrap ErrDataUnavailable
  - api/handlers.go: maps these to HTTP status codes
*/
package reconcile

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDataUnavailable is returned when the plan or activity table could not
	// be loaded. The engine is never invoked in that case.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInvalidAsOf is returned when an as-of date is malformed or falls
	// outside the reporting year.
	ErrInvalidAsOf = errors.New("invalid as-of date")

	// ErrUnknownMonth is returned when a month name is not one of MonthNames.
	ErrUnknownMonth = errors.New("unknown month")

	// ErrEntityNotFound is returned when a profile lookup matches no entity.
	ErrEntityNotFound = errors.New("entity not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnknownMonthError names the month that failed to resolve.
type UnknownMonthError struct {
	Name string
}

func (e *UnknownMonthError) Error() string {
	return fmt.Sprintf("unknown month %q", e.Name)
}

func (e *UnknownMonthError) Unwrap() error {
	return ErrUnknownMonth
}

// AsOfOutOfRangeError is returned when an as-of date is not inside the
// reporting year.
type AsOfOutOfRangeError struct {
	AsOf Date
	Year int
}

func (e *AsOfOutOfRangeError) Error() string {
	return fmt.Sprintf("as-of %s is outside reporting year %d", e.AsOf, e.Year)
}

func (e *AsOfOutOfRangeError) Unwrap() error {
	return ErrInvalidAsOf
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAsOf) ||
		errors.Is(err, ErrUnknownMonth)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
