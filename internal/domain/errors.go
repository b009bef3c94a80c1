package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. The HTTP layer maps each to a status code;
// anything else is treated as an internal (persistence) failure.
var (
	// ErrUnauthenticated is returned when a credential is missing, invalid or expired.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrValidation is returned for malformed or missing request fields.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when no record matches id and wallet.
	// A record owned by another wallet is reported the same way.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a trade leaves a terminal status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflict is returned when a concurrent update changed the record first.
	ErrConflict = errors.New("concurrent update")

	// ErrUpstreamUnavailable is returned when the aggregator failed or was unreachable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrPriceImpactTooHigh is returned when a quote exceeds the configured impact cap.
	ErrPriceImpactTooHigh = errors.New("price impact too high")
)

// ValidationError names the offending field category.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
