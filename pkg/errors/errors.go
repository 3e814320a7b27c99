// Package errors provides structured error handling for chairlift with
// error categorization, key-value context, and cause preservation. It keeps
// full compatibility with the standard errors.Is/errors.As chain.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType categorizes an error for handling strategies, retry decisions,
// and monitoring labels.
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeConnection represents connection errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeAuthentication represents authentication errors
	ErrorTypeAuthentication ErrorType = "authentication"
	// ErrorTypeRateLimit represents rate limit errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeData represents data processing errors
	ErrorTypeData ErrorType = "data"
	// ErrorTypeStorage represents local buffer storage errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
)

// Error is a structured error carrying a type, a human-readable message,
// an optional cause, and key-value details for debugging.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error. Chainable.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, 4)
	}
	e.Details[key] = value
	return e
}

// New creates a new structured error.
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message}
}

// Newf creates a new structured error with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a type and message. Returns nil when
// err is nil so call sites can wrap unconditionally.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Type: errType, Message: message, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...), Cause: err}
}

// TypeOf returns the ErrorType of err, unwrapping as needed.
// Errors outside this package report ErrorTypeInternal.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// IsRetryable reports whether the error type indicates a transient failure
// worth retrying: connection, timeout, and rate-limit errors.
func IsRetryable(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeConnection, ErrorTypeTimeout, ErrorTypeRateLimit:
		return true
	}
	return false
}
