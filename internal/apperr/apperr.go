// Package apperr provides standardized domain errors with codes for the dust server API.
//
// Usage:
//
//	// In services - return typed errors
//	if bookExists {
//	    return apperr.Conflict("file path already indexed")
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, apperr.ErrNotFound) {
//	    http.Error(w, err.Error(), http.StatusNotFound)
//	    return
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *apperr.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case apperr.CodeConflict:
//	        ...
//	    }
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code, matching the taxonomy in
// the server's error handling design.
type Code string

// Error codes used throughout the application.
const (
	CodeValidation     Code = "VALIDATION"
	CodeAuthentication Code = "AUTHENTICATION"
	CodeAuthorization  Code = "AUTHORIZATION"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeRange          Code = "RANGE"
	CodeStorage        Code = "STORAGE"
	CodeIO             Code = "IO"
	CodeCancelled      Code = "CANCELLED"
	CodeInternal       Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeAuthentication:
		return http.StatusUnauthorized
	case CodeAuthorization:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeRange:
		return http.StatusRequestedRangeNotSatisfiable
	case CodeCancelled:
		return 499 // client closed request, nginx convention
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details attached.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause wraps an underlying error as the cause.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrValidation     = &Error{Code: CodeValidation, Message: "validation error"}
	ErrAuthentication = &Error{Code: CodeAuthentication, Message: "authentication failed"}
	ErrAuthorization  = &Error{Code: CodeAuthorization, Message: "not authorized"}
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict       = &Error{Code: CodeConflict, Message: "conflict"}
	ErrRange          = &Error{Code: CodeRange, Message: "range not satisfiable"}
	ErrStorage        = &Error{Code: CodeStorage, Message: "storage error"}
	ErrIO             = &Error{Code: CodeIO, Message: "io error"}
	ErrCancelled      = &Error{Code: CodeCancelled, Message: "cancelled"}
	ErrInternal       = &Error{Code: CodeInternal, Message: "internal error"}
)

// Validation creates a validation error.
func Validation(msg string) *Error { return &Error{Code: CodeValidation, Message: msg} }

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error carrying structured details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Authentication creates an authentication error.
func Authentication(msg string) *Error { return &Error{Code: CodeAuthentication, Message: msg} }

// Authorization creates an authorization error.
func Authorization(msg string) *Error { return &Error{Code: CodeAuthorization, Message: msg} }

// NotFound creates a not found error.
func NotFound(msg string) *Error { return &Error{Code: CodeNotFound, Message: msg} }

// NotFoundf creates a not found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error { return &Error{Code: CodeConflict, Message: msg} }

// Conflictf creates a conflict error with a formatted message.
func Conflictf(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// RangeErr creates a range-not-satisfiable error.
func RangeErr(msg string) *Error { return &Error{Code: CodeRange, Message: msg} }

// Storage wraps an underlying storage error.
func Storage(err error) *Error {
	return &Error{Code: CodeStorage, Message: "storage error", cause: err}
}

// IOErr wraps an underlying filesystem error.
func IOErr(err error) *Error {
	return &Error{Code: CodeIO, Message: "io error", cause: err}
}

// Cancelled creates a cancellation error.
func Cancelled() *Error { return &Error{Code: CodeCancelled, Message: "operation cancelled"} }

// Internal creates an internal error.
func Internal(msg string) *Error { return &Error{Code: CodeInternal, Message: msg} }

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
