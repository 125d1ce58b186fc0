// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Detail returns the cause text, or an empty string when there is none.
func (e *Error) Detail() string {
	if e.Cause == nil {
		return ""
	}
	return e.Cause.Error()
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// NewError creates an error with the code of base and a custom message.
func NewError(base *Error, message string, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Request validation, raised before any network access
	ErrValidation      = &Error{Code: "VALIDATION_FAILED", Message: "invalid request"}
	ErrUnknownProvider = &Error{Code: "UNKNOWN_PROVIDER", Message: "unknown provider"}
	ErrNoInput         = &Error{Code: "NO_INPUT", Message: "No input provided"}

	// Provider errors
	ErrConnection            = &Error{Code: "CONNECTION_FAILED", Message: "provider connection failed"}
	ErrUnsupportedCapability = &Error{Code: "UNSUPPORTED_CAPABILITY", Message: "capability not supported by provider"}
	ErrGeneration            = &Error{Code: "GENERATION_FAILED", Message: "generation failed"}
	ErrStreamClosed          = &Error{Code: "STREAM_CLOSED", Message: "stream closed before completion"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
