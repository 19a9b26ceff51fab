// Package apierror provides the error taxonomy shared by the workflow engine
// and the standardized error response structures for the API. All errors
// returned to clients go through this package to ensure consistency and to
// prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"
)

// Kind classifies an engine error. Handlers map kinds to HTTP status codes;
// the engine itself never touches HTTP.
type Kind string

const (
	KindValidation    Kind = "validation"    // semantically inadmissible input
	KindConflict      Kind = "conflict"      // wrong state for the operation
	KindNotFound      Kind = "not_found"     // referenced record does not exist
	KindAuthorization Kind = "authorization" // role or ownership violation
	KindInternal      Kind = "internal"      // everything else
)

// Error is the canonical engine error: a kind plus a human-readable message.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"detail"`
}

func (e *Error) Error() string { return e.Message }

func Validation(msg string) *Error    { return &Error{Kind: KindValidation, Message: msg} }
func Conflict(msg string) *Error      { return &Error{Kind: KindConflict, Message: msg} }
func NotFound(msg string) *Error      { return &Error{Kind: KindNotFound, Message: msg} }
func Authorization(msg string) *Error { return &Error{Kind: KindAuthorization, Message: msg} }

// KindOf extracts the Kind from any error, unwrapping as needed.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Kind   Kind   `json:"kind,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Payload renders any error as a response envelope. Unknown (internal) errors
// are replaced by a generic message so nothing leaks to clients.
func Payload(err error) *APIError {
	var e *Error
	if errors.As(err, &e) {
		return &APIError{Detail: e.Message, Kind: e.Kind}
	}
	return &APIError{Detail: "internal server error", Kind: KindInternal}
}

// ValidationFields wraps multiple field errors from DTO binding.
type ValidationFields struct {
	Detail string            `json:"detail"`
	Kind   Kind              `json:"kind"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationFields {
	return &ValidationFields{Detail: "validation failed", Kind: KindValidation, Fields: fields}
}
