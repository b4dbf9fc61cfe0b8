package domain

import (
	"errors"
	"net/http"
)

// Kind classifies a domain error and fixes its HTTP status.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInternal
)

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("resource not found")
	ErrInternal     = errors.New("internal server error")
)

// Error codes sent to clients alongside the message.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL_ERROR"
)

// Error is the typed error raised by services and rendered by the HTTP boundary.
type Error struct {
	Kind    Kind
	Message string
	Code    string
	Details any
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

// Is matches the kind sentinels so callers can write errors.Is(err, domain.ErrUnauthorized).
func (e *Error) Is(target error) bool {
	return e.Kind.sentinel() == target
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// Status maps a kind to an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrConflict
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrInternal
	}
}

// NewValidation creates a 400 error. details is usually a field -> rule map.
func NewValidation(message string, details any) *Error {
	return &Error{Kind: KindValidation, Message: message, Code: CodeValidation, Details: details}
}

// NewConflict creates a 409 error.
func NewConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message, Code: CodeConflict}
}

// NewUnauthorized creates a 401 error.
func NewUnauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message, Code: CodeUnauthorized}
}

// NewForbidden creates a 403 error.
func NewForbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message, Code: CodeForbidden}
}

// NewNotFound creates a 404 error.
func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message, Code: CodeNotFound}
}

// NewInternal wraps an unexpected failure. The message is logged, never sent.
func NewInternal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Code: CodeInternal, Err: err}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
