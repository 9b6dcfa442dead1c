package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures raised while talking to the upstream portal.
// The retry layer dispatches on the kind: auth failures force a session
// invalidation before the next attempt while every other kind is retried
// without touching the session.
type ErrorKind string

const (
	// KindAuthExpired indicates the portal answered 401, 403 or 419 and the
	// session must be re-established.
	KindAuthExpired ErrorKind = "auth_expired"
	// KindAuthExhausted indicates the retry budget was spent exclusively on
	// authentication failures.
	KindAuthExhausted ErrorKind = "auth_exhausted"
	// KindUpstreamHTTP indicates any other >= 400 portal response.
	KindUpstreamHTTP ErrorKind = "upstream_http"
	// KindBadResponse indicates a malformed, non-JSON or empty portal body.
	KindBadResponse ErrorKind = "bad_response"
	// KindTimeout indicates the portal did not answer within the per-call
	// network timeout.
	KindTimeout ErrorKind = "timeout"
	// KindRetriesExhausted indicates the generic retry budget was spent.
	KindRetriesExhausted ErrorKind = "retries_exhausted"
)

// PortalError represents a failure while communicating with the upstream
// portal. It implements the error interface and carries the classification
// used by the retry orchestrator plus the HTTP status to surface to callers.
type PortalError struct {
	// Kind is the failure classification.
	Kind ErrorKind `json:"error"`
	// Message provides additional human-readable error information.
	Message string `json:"error_description,omitempty"`
	// UpstreamStatus is the portal's HTTP status when one was received.
	UpstreamStatus int `json:"-"`
	// StatusCode is the HTTP status code to return (excluded from JSON).
	StatusCode int `json:"-"`
	// Err is the wrapped transport error, if any.
	Err error `json:"-"`
}

// Error returns a string representation of the portal error.
// It implements the error interface.
func (e *PortalError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// Unwrap returns the wrapped transport error for errors.Is / errors.As.
func (e *PortalError) Unwrap() error {
	return e.Err
}

// NewAuthExpired creates a PortalError for a portal auth rejection carrying
// the upstream status (401, 403 or 419). Surfaced as HTTP 401 Unauthorized
// when it crosses the service boundary.
func NewAuthExpired(upstreamStatus int) *PortalError {
	return &PortalError{
		Kind:           KindAuthExpired,
		Message:        fmt.Sprintf("portal session rejected with status %d", upstreamStatus),
		UpstreamStatus: upstreamStatus,
		StatusCode:     http.StatusUnauthorized,
	}
}

// NewLoginFailed creates a PortalError for a login that the portal rejected
// or that produced no usable cookies. It is classified as an auth expiry so
// the retry layer clears the session and tries again.
func NewLoginFailed(err error) *PortalError {
	return &PortalError{
		Kind:       KindAuthExpired,
		Message:    "could not authenticate with the portal",
		StatusCode: http.StatusUnauthorized,
		Err:        err,
	}
}

// NewAuthExhausted creates a PortalError raised when the retry budget is
// spent on authentication failures. Returns HTTP 401 Unauthorized.
func NewAuthExhausted(attempts int) *PortalError {
	return &PortalError{
		Kind:       KindAuthExhausted,
		Message:    fmt.Sprintf("could not authenticate after %d attempts", attempts),
		StatusCode: http.StatusUnauthorized,
	}
}

// NewUpstreamHTTP creates a PortalError for a non-auth portal error status.
// Returns HTTP 500 Internal Server Error.
func NewUpstreamHTTP(upstreamStatus int, body string) *PortalError {
	return &PortalError{
		Kind:           KindUpstreamHTTP,
		Message:        fmt.Sprintf("portal returned status %d: %s", upstreamStatus, body),
		UpstreamStatus: upstreamStatus,
		StatusCode:     http.StatusInternalServerError,
	}
}

// NewBadResponse creates a PortalError for a malformed portal body.
// Returns HTTP 502 Bad Gateway.
func NewBadResponse(message string) *PortalError {
	return &PortalError{
		Kind:       KindBadResponse,
		Message:    message,
		StatusCode: http.StatusBadGateway,
	}
}

// NewTimeout creates a PortalError for an upstream network timeout.
// Returns HTTP 408 Request Timeout.
func NewTimeout(err error) *PortalError {
	return &PortalError{
		Kind:       KindTimeout,
		Message:    "timed out waiting for the portal",
		StatusCode: http.StatusRequestTimeout,
		Err:        err,
	}
}

// NewRetriesExhausted creates a PortalError raised when the generic retry
// budget is spent. Returns HTTP 500 Internal Server Error.
func NewRetriesExhausted(attempts int, last error) *PortalError {
	return &PortalError{
		Kind:       KindRetriesExhausted,
		Message:    fmt.Sprintf("giving up after %d attempts", attempts),
		StatusCode: http.StatusInternalServerError,
		Err:        last,
	}
}

// KindOf returns the classification of err, or an empty kind when err is
// not a PortalError.
func KindOf(err error) ErrorKind {
	var pe *PortalError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsAuthExpired reports whether err is an auth-expiry portal failure.
func IsAuthExpired(err error) bool {
	return KindOf(err) == KindAuthExpired
}

var (
	// ErrNotFound indicates the requested record does not exist in the
	// fetched data set. Returns HTTP 404 Not Found.
	ErrNotFound = errors.New("record not found")

	// ErrMissingIdentifier indicates a record carries none of the known
	// identifier fields. Surfaced as HTTP 400 Bad Request.
	ErrMissingIdentifier = errors.New("record has no usable identifier")
)

// ValidationError represents a single field validation error on caller
// input. It is surfaced immediately and never retried.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error returns a string representation of the validation error in the
// format "field: message". It implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
