// Package apperr defines the application error taxonomy and its mapping to
// HTTP status codes. Handlers and stores return *Error values (or wrap
// sentinel store errors into them); the respond package serializes them.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers. Codes are stable and
// machine-checkable; messages are for humans.
type Code string

const (
	CodeInvalid      Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeExternal     Code = "external_service_error"
	CodeInternal     Code = "internal_error"
)

// Error is an application error with a stable code and a user-safe message.
// Cause is for logs only and is never serialized to clients.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error carrying an underlying cause for logging.
// The cause is not exposed to clients.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Invalid is shorthand for New(CodeInvalid, msg).
func Invalid(msg string) *Error { return New(CodeInvalid, msg) }

// Unauthorized is shorthand for New(CodeUnauthorized, msg).
func Unauthorized(msg string) *Error { return New(CodeUnauthorized, msg) }

// Forbidden is shorthand for New(CodeForbidden, msg).
func Forbidden(msg string) *Error { return New(CodeForbidden, msg) }

// NotFound is shorthand for New(CodeNotFound, msg).
func NotFound(msg string) *Error { return New(CodeNotFound, msg) }

// Conflict is shorthand for New(CodeConflict, msg).
func Conflict(msg string) *Error { return New(CodeConflict, msg) }

// External wraps an oracle/provider failure. The provider's payload or
// transport error stays in Cause; clients only ever see the message.
func External(msg string, cause error) *Error {
	return Wrap(CodeExternal, msg, cause)
}

// Internal wraps a datastore or other infrastructure failure.
func Internal(cause error) *Error {
	return Wrap(CodeInternal, "internal error", cause)
}

// HTTPStatus maps an error code to its HTTP status.
// External-service failures are reported as 500: they are our failure to
// complete the check, not the caller's.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalid:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeExternal, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// From extracts an *Error from err, or wraps unknown errors as Internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}
