package domain

import (
	"errors"
	"strings"
)

var (
	// ErrRejected matches any *ValidationError via errors.Is.
	ErrRejected = errors.New("query rejected")
	ErrNotFound = errors.New("not found")
)

// ValidationError carries every safety-policy violation found in a query.
// The database is never touched when one is returned.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation: " + strings.Join(e.Reasons, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrRejected
}

// ExecutionError is an engine-level failure for a query that passed validation.
// Message is the engine's own text.
type ExecutionError struct {
	Message string
	Cause   error
}

// NewExecutionError wraps an engine error, keeping its message verbatim.
func NewExecutionError(cause error) *ExecutionError {
	return &ExecutionError{Message: cause.Error(), Cause: cause}
}

func (e *ExecutionError) Error() string {
	return e.Message
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Messages flattens an error into the message list of an error payload.
func Messages(err error) []string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reasons
	}
	var eerr *ExecutionError
	if errors.As(err, &eerr) {
		return []string{eerr.Message}
	}
	return []string{err.Error()}
}
