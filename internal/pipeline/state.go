package pipeline

import (
	"errors"
	"net/http"

	"github.com/semmy-space/shelf/internal/schema"
	"github.com/semmy-space/shelf/internal/transport"
)

// Status is the single tag of a pipeline's request lifecycle.
type Status int

const (
	Idle Status = iota
	Loading
	Success
	ValidationError
	TransportError
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case ValidationError:
		return "validation-error"
	case TransportError:
		return "transport-error"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a request lifecycle.
func (s Status) Terminal() bool {
	return s == Success || s == ValidationError || s == TransportError
}

// Detail prefix and fallback used for terminal error states.
const (
	ValidationPrefix      = "Data validation failed: "
	UnknownTransportError = "Unknown API error occurred"
	MissingSchemaDetail   = "no response schema"
)

// ErrIncomplete is returned by State.Err when no terminal outcome was reached,
// for example because the invocation was canceled.
var ErrIncomplete = errors.New("request did not complete")

// State is a snapshot of a pipeline. Data is set only on Success and
// ErrorDetail only on the two error statuses.
type State[T any] struct {
	Status      Status
	Data        *T
	ErrorDetail string

	cause error
}

// Loading reports whether a request is in flight (or was canceled mid-flight).
func (s State[T]) Loading() bool { return s.Status == Loading }

// Success reports whether the last settled request validated.
func (s State[T]) Success() bool { return s.Status == Success }

// Error reports whether the last settled request failed.
func (s State[T]) Error() bool {
	return s.Status == ValidationError || s.Status == TransportError
}

// Err converts the state into an error value: nil on Success, *Error on
// either failure status, ErrIncomplete otherwise.
func (s State[T]) Err() error {
	switch s.Status {
	case Success:
		return nil
	case ValidationError, TransportError:
		return &Error{Status: s.Status, Detail: s.ErrorDetail, cause: s.cause}
	default:
		return ErrIncomplete
	}
}

// Error is the error form of a failed State.
type Error struct {
	Status Status
	Detail string
	cause  error
}

func (e *Error) Error() string { return e.Detail }

func (e *Error) Unwrap() error { return e.cause }

// Issues returns the schema issues behind a validation error.
func (e *Error) Issues() schema.Issues {
	var issues schema.Issues
	if errors.As(e.cause, &issues) {
		return issues
	}
	return nil
}

// StatusCode returns the HTTP status of a rejected request, or 0.
func (e *Error) StatusCode() int {
	var httpErr *transport.HTTPError
	if errors.As(e.cause, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// Unauthorized reports whether the server rejected the credential.
func (e *Error) Unauthorized() bool {
	code := e.StatusCode()
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
