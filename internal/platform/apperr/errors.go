// Package apperr defines the error taxonomy shared by the domain services.
// Handlers map these to HTTP statuses; anything outside the taxonomy is
// treated as an internal failure and surfaced as a generic message so that
// storage details never leak to callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports malformed or missing input. Fields lists every
// offending field so a caller can render them all at once.
type ValidationError struct {
	Msg    string
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Msg, strings.Join(e.Fields, ", "))
	}
	return e.Msg
}

func Validation(msg string, fields ...string) error {
	return &ValidationError{Msg: msg, Fields: fields}
}

// InvalidStateError reports a transition attempted from a state that
// forbids it.
type InvalidStateError struct {
	Entity    string
	Current   string
	Attempted string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s is %s: cannot %s", e.Entity, e.Current, e.Attempted)
}

func InvalidState(entity, current, attempted string) error {
	return &InvalidStateError{Entity: entity, Current: current, Attempted: attempted}
}

// RateLimitError reports a denied message send, carrying the structured
// reason the UI renders verbatim.
type RateLimitError struct {
	Reason       string
	CurrentCount int
	Limit        int
	Plan         string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (plan=%s, count=%d, limit=%d)", e.Reason, e.Plan, e.CurrentCount, e.Limit)
}

// NotFoundError reports an absent referenced entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// AuthorizationError reports an actor lacking role or ownership for an
// action. The middleware layer checks roles too; services re-check
// ownership as defense in depth.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

func Unauthorized(msg string) error {
	return &AuthorizationError{Msg: msg}
}

// HTTPStatus maps an error to the HTTP status a handler should return.
func HTTPStatus(err error) int {
	var ve *ValidationError
	var se *InvalidStateError
	var re *RateLimitError
	var ne *NotFoundError
	var ae *AuthorizationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &se):
		return http.StatusConflict
	case errors.As(err, &re):
		return http.StatusTooManyRequests
	case errors.As(err, &ne):
		return http.StatusNotFound
	case errors.As(err, &ae):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message for an error. Errors outside the
// taxonomy collapse to a generic message; the full error belongs in the
// server-side log.
func Message(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "operation failed"
	}
	return err.Error()
}
