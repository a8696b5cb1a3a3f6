// Package apperr defines the service-wide error taxonomy. Every handler
// boundary converts errors to one of these so nothing reaches the transport
// layer untyped.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for clients.
type Code string

// Error codes.
const (
	CodeMissingInput        Code = "missing_input"        // caller must retry with correct input
	CodeUnauthorized        Code = "unauthorized"         // no usable credentials
	CodeUpstreamAuth        Code = "upstream_auth"        // provider rejected code/refresh token
	CodeUpstreamUnavailable Code = "upstream_unavailable" // provider unreachable, safe to retry
	CodeNotFound            Code = "not_found"            // session/group code invalid or expired
	CodeForbidden           Code = "forbidden"            // action not permitted for this user
	CodeConflict            Code = "conflict"             // state prevents the action (e.g. full session)
	CodeInternal            Code = "internal"             // unexpected; details stay server-side
)

// Error is a typed application error with an HTTP status class.
type Error struct {
	Code    Code
	Message string
	Details any // optional diagnostic payload propagated to the client
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status for the error code.
func (e *Error) Status() int {
	switch e.Code {
	case CodeMissingInput, CodeUpstreamAuth:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusBadRequest
	case CodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New creates an Error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error wrapping a cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Internal wraps an unexpected error. The cause is logged server-side; the
// client only ever sees the generic message.
func Internal(message string, err error) *Error {
	return &Error{Code: CodeInternal, Message: message, Err: err}
}

// From extracts an *Error, converting unknown errors to CodeInternal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}
