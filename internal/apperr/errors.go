// Package apperr defines the behavioral error taxonomy shared by every
// stayfly component. Components wrap upstream errors into a Kind at the
// point they give up recovering locally (retries exhausted, repair pass
// failed); the HTTP layer renders Kind into a status code and body, and
// the RAG orchestrator never lets a raw upstream error reach a user.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by the behaviour it should drive, not by its
// cause. Two errors with different causes but the same Kind are handled
// identically by callers.
type Kind string

const (
	// KindValidation is malformed or incomplete user input.
	KindValidation Kind = "validation"
	// KindAuth is a missing or invalid credential.
	KindAuth Kind = "auth"
	// KindForbidden is a valid credential lacking visibility or permission.
	KindForbidden Kind = "forbidden"
	// KindNotFound is a reference to a record that does not exist or is
	// not visible to the caller.
	KindNotFound Kind = "not_found"
	// KindRateLimited is a tenant plan or provider quota exceeded.
	KindRateLimited Kind = "rate_limited"
	// KindTransient is an upstream failure that was retried and still
	// did not succeed (scrape timeout, LLM 5xx, embedding 5xx).
	KindTransient Kind = "transient"
	// KindExtractionFailed is a persistent upstream failure confined to
	// the ingestion pipeline: unparsable LLM output after repair, or a
	// scrape that exhausted every available method.
	KindExtractionFailed Kind = "extraction_failed"
	// KindInternal is an unclassified or fatal failure (database
	// unreachable after retry, programmer error).
	KindInternal Kind = "internal"
)

// Error is the concrete error type carrying a Kind, a human-readable
// message, an optional field-level detail map, and an optional wrapped
// cause. It implements Unwrap so errors.Is/errors.As see through it.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error carrying cause as its Unwrap target. If err is
// already an *Error, its Kind is preserved unless kind is non-empty.
func Wrap(kind Kind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) && kind == "" {
		kind = existing.Kind
	}
	return &Error{Kind: kind, Message: message, cause: err}
}

// WithField attaches a field-level validation detail and returns e for
// chaining.
func (e *Error) WithField(field, detail string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = detail
	return e
}

// KindOf extracts the Kind of err, defaulting to KindInternal for errors
// that were never classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to the status code the HTTP layer returns.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTransient:
		return http.StatusBadGateway
	case KindExtractionFailed:
		return http.StatusUnprocessableEntity
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
