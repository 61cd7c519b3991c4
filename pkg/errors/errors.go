// Package errors provides structured error types for the dungeontower
// generator and its tooling.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (map descriptions, configs, layouts)
//   - NOT_FOUND_*: Resource not found
//   - Generation outcomes: GENERATION_FAILED and CANCELLED
//   - INTERNAL_*: Unexpected internal errors
//
// Setup failures (DISCONNECTED_GRAPH, NO_CONFIGURATION_SPACE, INVALID_MAP)
// are reported before any search runs and are never retried.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidMap, "unknown shape %q", name)
//	if errors.Is(err, errors.ErrCodeInvalidMap) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCancelled, ctx.Err(), "generation cancelled")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidMap    Code = "INVALID_MAP"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidLayout Code = "INVALID_LAYOUT"

	// Setup failures
	ErrCodeDisconnectedGraph    Code = "DISCONNECTED_GRAPH"
	ErrCodeNoConfigurationSpace Code = "NO_CONFIGURATION_SPACE"

	// Generation outcomes
	ErrCodeGenerationFailed Code = "GENERATION_FAILED"
	ErrCodeCancelled        Code = "CANCELLED"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Backend errors
	ErrCodeStorage Code = "STORAGE_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

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

// IsSetupFailure reports whether err was raised while validating the map
// description or precomputing configuration spaces and chains.
func IsSetupFailure(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidMap, ErrCodeInvalidConfig, ErrCodeDisconnectedGraph, ErrCodeNoConfigurationSpace:
		return true
	}
	return false
}

// HTTPStatus maps an error code to the HTTP status the API responds with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidFormat, ErrCodeInvalidMap, ErrCodeInvalidConfig,
		ErrCodeInvalidPath, ErrCodeDisconnectedGraph, ErrCodeNoConfigurationSpace:
		return 400
	case ErrCodeNotFound, ErrCodeFileNotFound:
		return 404
	case ErrCodeGenerationFailed:
		return 422
	case ErrCodeCancelled, ErrCodeTimeout:
		return 408
	case ErrCodeUnsupported:
		return 501
	default:
		return 500
	}
}
