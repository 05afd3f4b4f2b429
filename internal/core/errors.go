package core

import (
	"errors"
	"fmt"
)

// ErrReportNotFound is returned when no report exists for the requested
// user and period (or id).
var ErrReportNotFound = errors.New("report not found")

// ValidationError marks caller input that must be rejected immediately and
// never retried: malformed periods, blank user ids, non-positive amounts.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Invalidf builds a ValidationError.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IntegrationError signals that an external collaborator (the transaction
// source) failed. It is surfaced distinctly so callers can tell a
// dependency outage apart from local faults; it is never retried
// internally and local state is left unchanged.
type IntegrationError struct {
	Msg string
	Err error
}

func (e *IntegrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// IsIntegration reports whether err is (or wraps) an IntegrationError.
func IsIntegration(err error) bool {
	var ie *IntegrationError
	return errors.As(err, &ie)
}
