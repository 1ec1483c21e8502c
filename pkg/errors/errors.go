// Package errors provides structured error types for tconf.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the builders
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Configuration and input validation failures, reported before
//     any kernel call
//   - CLASSIFIER_AMBIGUITY: A surface boundary that is neither a triangle nor
//     a quadrilateral
//   - KERNEL_STATE: Protocol violations reported by the geometry kernel
//   - MESHER_UNAVAILABLE: The external mesher could not be run
//   - INTERNAL_ERROR: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidBand, "rInner-a = %g < 0", inner)
//	if errors.Is(err, errors.ErrCodeInvalidBand) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeKernelState, origErr, "classify surface %d", s)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors
	ErrCodeInvalidBand   Code = "INVALID_BAND"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Decomposition errors
	ErrCodeClassifierAmbiguity Code = "CLASSIFIER_AMBIGUITY"
	ErrCodeKernelState         Code = "KERNEL_STATE"

	// External tool errors
	ErrCodeMesherUnavailable Code = "MESHER_UNAVAILABLE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsConfig reports whether err is a configuration error, i.e. one that is
// detected before the kernel is touched and must never be retried.
func IsConfig(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidBand, ErrCodeInvalidInput, ErrCodeInvalidFormat, ErrCodeInvalidPath:
		return true
	}
	return false
}
