// Package apperr defines the error kinds surfaced to API callers.
package apperr

import (
	"errors"
	"net/http"
)

// Kind sentinels. Match with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyMember   = errors.New("already member")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
)

// Error carries a kind and the short message returned to the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

func NotFound(msg string) error        { return &Error{Kind: ErrNotFound, Message: msg} }
func InvalidArgument(msg string) error { return &Error{Kind: ErrInvalidArgument, Message: msg} }
func AlreadyMember(msg string) error   { return &Error{Kind: ErrAlreadyMember, Message: msg} }
func Forbidden(msg string) error       { return &Error{Kind: ErrForbidden, Message: msg} }
func Unauthorized(msg string) error    { return &Error{Kind: ErrUnauthorized, Message: msg} }

// Status maps err to an HTTP status code. Unknown errors are 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrAlreadyMember):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Public reports whether err is one of the caller-facing kinds.
func Public(err error) bool {
	return Status(err) != http.StatusInternalServerError
}
