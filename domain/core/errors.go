package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
	ErrUploadNotFound  = fmt.Errorf("%w: upload", ErrNotFound)
	ErrColumnNotFound  = fmt.Errorf("%w: column", ErrNotFound)

	// Structural errors
	ErrEmptyTable      = errors.New("table has no rows")
	ErrNoColumns       = errors.New("table has no columns")
	ErrNoDateColumn    = errors.New("no date column available for range filter")
	ErrNotNumeric      = errors.New("column is not numeric")
	ErrInvalidRange    = errors.New("date range start is after end")
	ErrUnreadableInput = errors.New("input could not be read as a table")
)

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsStructuralError(err error) bool {
	return errors.Is(err, ErrEmptyTable) ||
		errors.Is(err, ErrNoColumns) ||
		errors.Is(err, ErrNoDateColumn) ||
		errors.Is(err, ErrColumnNotFound) ||
		errors.Is(err, ErrNotNumeric) ||
		errors.Is(err, ErrInvalidRange)
}
