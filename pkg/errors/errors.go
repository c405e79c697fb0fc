// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrInvalidLedger     = errors.New("invalid ledger")
	ErrInvalidTimeRange  = errors.New("invalid time range")
	ErrInvalidPage       = errors.New("invalid page or page size")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// Data source errors
	ErrSourceUnavailable = errors.New("record source unavailable")
	ErrUpstreamStatus    = errors.New("unexpected upstream status")
	ErrCacheMiss         = errors.New("cache miss")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is is errors.Is, re-exported so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// New is errors.New.
func New(message string) error {
	return errors.New(message)
}
