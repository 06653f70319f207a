package medishare_errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrTooLarge           = errors.New("file too large")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrAlreadyExists      = errors.New("already exists")
)

// Kind is the wire-level error category.
type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindAuthorization   Kind = "AUTHORIZATION_ERROR"
	KindNotFound        Kind = "NOT_FOUND"
	KindInvalidState    Kind = "INVALID_STATE"
	KindExternalService Kind = "EXTERNAL_SERVICE_ERROR"
	KindConflict        Kind = "CONFLICT"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindInternal        Kind = "INTERNAL_ERROR"
)

// Error is a domain error carrying a caller-facing message. It unwraps to
// one of the sentinels above so errors.Is keeps working across layers.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field, cause: ErrInvalidInput}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message, cause: ErrUnauthorized}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message, cause: ErrForbidden}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message, cause: ErrNotFound}
}

func InvalidState(message string) *Error {
	return &Error{Kind: KindInvalidState, Message: message, cause: ErrInvalidTransition}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message, cause: ErrAlreadyExists}
}

// External wraps a collaborator failure. The cause stays reachable through
// errors.Is alongside ErrServiceUnavailable.
func External(message string, cause error) *Error {
	wrapped := ErrServiceUnavailable
	if cause != nil {
		wrapped = fmt.Errorf("%w: %w", ErrServiceUnavailable, cause)
	}
	return &Error{Kind: KindExternalService, Message: message, cause: wrapped}
}

// KindOf classifies any error, typed or sentinel. Unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrTooLarge):
		return KindValidation
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthenticated
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidState
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrServiceUnavailable):
		return KindExternalService
	default:
		return KindInternal
	}
}

// PublicMessage returns the text safe to show a caller. Internal errors are
// never echoed back.
func PublicMessage(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Message
	}
	if KindOf(err) == KindInternal {
		return "internal server error"
	}
	return err.Error()
}

// FieldOf returns the offending input field of a validation error, if any.
func FieldOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Field
	}
	return ""
}
