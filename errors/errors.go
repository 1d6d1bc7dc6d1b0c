// Package errors provides the structured error type shared by speechkit
// packages.
//
// ContextualError records which component failed, during which operation, and
// whether retrying could help. It unwraps to its cause so errors.Is and
// errors.As see through it.
//
//	err := errors.New("tts", "Connect", dialErr).WithDetails(map[string]any{"voice": "leah"})
package errors

import (
	stderrors "errors"
	"fmt"
)

// Component names used across the module.
const (
	ComponentTTS       = "tts"
	ComponentTransport = "transport"
	ComponentConfig    = "config"
	ComponentCache     = "audiocache"
	ComponentStage     = "stage"
)

// ContextualError describes where and why an error occurred.
type ContextualError struct {
	// Component identifies the package that produced the error.
	Component string

	// Operation describes what was being done when the error occurred.
	Operation string

	// StatusCode is an optional remote or application-level status code.
	StatusCode int

	// Retryable marks transient failures.
	Retryable bool

	// Details holds optional structured metadata about the error.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a ContextualError with the given component, operation, and cause.
func New(component, operation string, cause error) *ContextualError {
	return &ContextualError{
		Component: component,
		Operation: operation,
		Cause:     cause,
	}
}

// Newf is New with a formatted cause.
func Newf(component, operation, format string, args ...any) *ContextualError {
	return New(component, operation, fmt.Errorf(format, args...))
}

// Error returns a human-readable representation of the error.
func (e *ContextualError) Error() string {
	base := fmt.Sprintf("[%s] %s", e.Component, e.Operation)

	if e.StatusCode != 0 {
		base += fmt.Sprintf(" (status %d)", e.StatusCode)
	}

	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}

	return base
}

// Unwrap returns the underlying cause.
func (e *ContextualError) Unwrap() error {
	return e.Cause
}

// WithStatusCode sets the status code and returns e for chaining.
func (e *ContextualError) WithStatusCode(code int) *ContextualError {
	e.StatusCode = code
	return e
}

// WithDetails sets the details map and returns e for chaining.
func (e *ContextualError) WithDetails(details map[string]any) *ContextualError {
	e.Details = details
	return e
}

// WithRetryable marks e as transient and returns e for chaining.
func (e *ContextualError) WithRetryable(retryable bool) *ContextualError {
	e.Retryable = retryable
	return e
}

// ComponentOf returns the component of the outermost ContextualError in err's
// chain, or "" when there is none.
func ComponentOf(err error) string {
	var ce *ContextualError
	if stderrors.As(err, &ce) {
		return ce.Component
	}
	return ""
}

// IsRetryable reports whether any ContextualError in err's chain is retryable.
func IsRetryable(err error) bool {
	for err != nil {
		var ce *ContextualError
		if !stderrors.As(err, &ce) {
			return false
		}
		if ce.Retryable {
			return true
		}
		err = ce.Cause
	}
	return false
}
