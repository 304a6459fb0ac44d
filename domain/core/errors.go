package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Prior construction
	ErrUnknownDistribution = errors.New("unknown distribution")
	ErrBadPriorParams      = errors.New("invalid prior parameters")

	// Sample input
	ErrSampleOutOfRange = errors.New("unit sample outside [0, 1]")
	ErrColumnMismatch   = errors.New("sample columns do not match parameters")
	ErrEmptyHeader      = errors.New("missing header row")

	// Engine
	ErrRedshiftOutOfRange = errors.New("redshift outside engine bounds")
	ErrMissingParameter   = errors.New("cosmology is missing a required parameter")
	ErrBadEngineResponse  = errors.New("malformed engine response")

	// Determinism
	ErrLengthMismatch = errors.New("output length does not match input")
)

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// NewSampleRangeError reports the offending cell of a unit sample matrix
func NewSampleRangeError(row int, column string, value float64) error {
	return fmt.Errorf("%w: row %d column %s value %g", ErrSampleOutOfRange, row, column, value)
}

func NewMissingParameterError(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, name)
}
