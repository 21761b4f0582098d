package apperrors

import (
	"errors"
	"fmt"
)

// ErrorType categorizes an error for transport mapping and retry decisions.
type ErrorType string

const (
	// TypeNotFound means the query returned no matching (or no permitted) row.
	TypeNotFound ErrorType = "not_found"
	// TypePermissionDenied means the permission evaluator rejected the action.
	TypePermissionDenied ErrorType = "permission_denied"
	// TypeConflict means a conditional update matched zero rows because the
	// record's state changed since the caller last read it.
	TypeConflict ErrorType = "conflict"
	// TypeDuplicate is a unique-key integrity violation. Never retried.
	TypeDuplicate ErrorType = "duplicate"
	// TypeForeignKey is a foreign-key integrity violation. Never retried.
	TypeForeignKey ErrorType = "foreign_key_violation"
	// TypeTransient is an infrastructure failure that may succeed on retry.
	TypeTransient ErrorType = "transient"
	// TypeValidation is a client-side shape/form validation failure.
	TypeValidation ErrorType = "validation"
	// TypeUnauthorized means the caller is not authenticated.
	TypeUnauthorized ErrorType = "unauthorized"
	// TypeInternal is everything else.
	TypeInternal ErrorType = "internal"
)

// Error is a structured application error with a taxonomy type and an
// optional wrapped cause.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on taxonomy type so sentinel comparisons work across wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// New creates an application error of the given type.
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates an application error of the given type around a cause.
func Wrap(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound         = New(TypeNotFound, "record not found")
	ErrPermissionDenied = New(TypePermissionDenied, "permission denied")
	ErrConflict         = New(TypeConflict, "record state changed concurrently")
	ErrDuplicate        = New(TypeDuplicate, "duplicate key")
	ErrForeignKey       = New(TypeForeignKey, "foreign key violation")
	ErrTransient        = New(TypeTransient, "transient backend failure")
	ErrValidation       = New(TypeValidation, "validation failed")
	ErrUnauthorized     = New(TypeUnauthorized, "unauthorized")
)

// TypeOf extracts the taxonomy type of err, or TypeInternal when err carries
// no application error.
func TypeOf(err error) ErrorType {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Type
	}
	return TypeInternal
}

// IsRetryable reports whether err is worth retrying. Integrity violations,
// validation, permission, conflict and not-found errors are permanent;
// only transient infrastructure failures (and unclassified internal errors
// such as dropped connections) retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch TypeOf(err) {
	case TypeTransient, TypeInternal:
		return true
	default:
		return false
	}
}
