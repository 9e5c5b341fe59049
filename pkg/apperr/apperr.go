// Package apperr defines the error taxonomy surfaced by mutations.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failed mutation.
type Kind string

const (
	KindNotAuthenticated       Kind = "NotAuthenticated"
	KindPermissionDenied       Kind = "PermissionDenied"
	KindNotFound               Kind = "NotFound"
	KindValidation             Kind = "ValidationError"
	KindInsufficientInventory  Kind = "InsufficientInventory"
	KindPaymentMethodRequired  Kind = "PaymentMethodRequired"
	KindPaymentExecutionFailed Kind = "PaymentExecutionFailed"
	KindInternal               Kind = "Internal"
)

// Error is a user-facing error with a single descriptive message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func NotAuthenticated(format string, args ...any) *Error {
	return New(KindNotAuthenticated, format, args...)
}

func PermissionDenied(format string, args ...any) *Error {
	return New(KindPermissionDenied, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func InsufficientInventory(format string, args ...any) *Error {
	return New(KindInsufficientInventory, format, args...)
}

func PaymentMethodRequired(format string, args ...any) *Error {
	return New(KindPaymentMethodRequired, format, args...)
}

func PaymentExecutionFailed(err error, format string, args ...any) *Error {
	return Wrap(KindPaymentExecutionFailed, err, format, args...)
}

// Internal hides err behind a generic message.
func Internal(err error, format string, args ...any) *Error {
	return Wrap(KindInternal, err, format, args...)
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message of err. Foreign errors are not
// exposed.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindInternal && e.Message == "" {
			return "internal error"
		}
		return e.Error()
	}
	return "internal error"
}
