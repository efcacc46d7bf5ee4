// Package apperr defines the error taxonomy shared by services and the
// HTTP layer. Services return kinded errors; a single responder in the
// handlers package maps each kind to a status code.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a domain failure.
type Kind int

const (
	// KindValidation marks missing or malformed input.
	KindValidation Kind = iota + 1
	// KindConflict marks a duplicate-resource failure, e.g. a
	// registered email.
	KindConflict
	// KindUnauthorized marks bad credentials or cross-user access.
	KindUnauthorized
	// KindNotFound marks a missing resource. Invalid, expired and
	// consumed reset tokens all map here so callers cannot tell them
	// apart.
	KindNotFound
	// KindDependency marks a failure in a dependent service (mail
	// transport, image host).
	KindDependency
)

// Error is a domain failure with a client-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a kinded error with the given client-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a kinded error preserving the underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Status maps an error to an HTTP status code. Unknown errors map to 500.
func Status(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the client-facing message for an error. Unknown
// errors get a generic message so internals never leak.
func UserMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}

// IsKind reports whether err is a kinded error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
