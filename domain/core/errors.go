package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrEmptyInput    = errors.New("no observed values in selected columns")
	ErrShapeMismatch = errors.New("shape mismatch")

	// Configuration errors
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrInsufficientSamples = errors.New("insufficient samples for imputation")

	// Lookup errors
	ErrNotFound       = errors.New("resource not found")
	ErrColumnNotFound = fmt.Errorf("%w: column", ErrNotFound)
)

// Error constructors with context
func NewEmptyInputError(columns int) error {
	return fmt.Errorf("%w: %d columns contain only missing values", ErrEmptyInput, columns)
}

func NewInvalidConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, reason)
}

func NewInsufficientSamplesError(group GroupName, class string, rows, neighbors int) error {
	return fmt.Errorf("%w: group %s has %d %s rows eligible, n_neighbors is %d",
		ErrInsufficientSamples, group, rows, class, neighbors)
}

func NewShapeMismatchError(what string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrShapeMismatch, what, reason)
}

func NewMissingColumnError(group GroupName, column string) error {
	return fmt.Errorf("%w: %w %q referenced by group %s", ErrShapeMismatch, ErrColumnNotFound, column, group)
}
