/*
errors.go - Centralized error types for the coverage engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine has exactly two input-error families plus the calendar's
  InvalidDate; everything else is a legitimate domain value, never an
  error (a wellness visit not yet recorded is "pending", not a failure).

ERROR CATEGORIES:
  1. Input errors  - malformed claims, policies, and dates
  2. Store errors  - missing records (used by store/sqlite and api)

USAGE:
  if errors.Is(err, coverage.ErrInvalidClaim) { ... }

SEE ALSO:
  - calendar/date.go: ErrInvalidDate, propagated unchanged
  - api/handlers.go: maps these onto HTTP status codes
*/
package coverage

import (
	"errors"
	"fmt"

	"github.com/warp/coverage-engine/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidClaim is returned when a claim record is structurally
	// incomplete (missing required date, negative age, unknown cause).
	ErrInvalidClaim = errors.New("invalid claim")

	// ErrInvalidPolicy is returned when a policy record violates its
	// structural invariants (deadline ordering, non-positive term).
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrPolicyNotFound is returned when a referenced policy doesn't exist.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrClaimNotFound is returned when a referenced claim doesn't exist.
	ErrClaimNotFound = errors.New("claim not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidClaimError identifies the rejected claim field.
type InvalidClaimError struct {
	Field  string
	Reason string
}

func (e *InvalidClaimError) Error() string {
	return fmt.Sprintf("invalid claim: %s %s", e.Field, e.Reason)
}

func (e *InvalidClaimError) Unwrap() error { return ErrInvalidClaim }

// InvalidPolicyError identifies the rejected policy field.
type InvalidPolicyError struct {
	Field  string
	Reason string
}

func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid policy: %s %s", e.Field, e.Reason)
}

func (e *InvalidPolicyError) Unwrap() error { return ErrInvalidPolicy }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidClaim) ||
		errors.Is(err, ErrInvalidPolicy) ||
		errors.Is(err, calendar.ErrInvalidDate)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrClaimNotFound)
}
