package models

import (
	"errors"
	"fmt"
	"time"
)

// InsufficientDataError means a statistic cannot be computed yet because the
// history is too short. It is a "not yet available" state, not a defect.
type InsufficientDataError struct {
	What     string
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d observations, have %d", e.What, e.Required, e.Got)
}

// NoDataError means a requested range holds zero usable observations.
type NoDataError struct {
	Start time.Time
	End   time.Time
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data between %s and %s", e.Start.Format(time.DateOnly), e.End.Format(time.DateOnly))
}

// ValidationError rejects malformed configuration before any work begins.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(field, format string, a ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, a...)}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNoData reports whether err wraps a NoDataError.
func IsNoData(err error) bool {
	var v *NoDataError
	return errors.As(err, &v)
}

// IsInsufficientData reports whether err wraps an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var v *InsufficientDataError
	return errors.As(err, &v)
}
