// Package apperr defines the error kinds surfaced to API callers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers
type Kind string

// Error kinds
const (
	KindNotFound               Kind = "NOT_FOUND"
	KindInvalidInput           Kind = "INVALID_INPUT"
	KindInvalidStateTransition Kind = "INVALID_STATE_TRANSITION"
	KindInsufficientStock      Kind = "INSUFFICIENT_STOCK"
	KindConflict               Kind = "CONFLICT"
	KindInternal               Kind = "INTERNAL"
)

// Error is a classified error with a human-readable message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports an unknown part, product, plan or receipt
func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

// InvalidInput reports a malformed or out of range request value
func InvalidInput(format string, args ...interface{}) *Error {
	return newf(KindInvalidInput, format, args...)
}

// InvalidStateTransition reports a status change not permitted from the current state
func InvalidStateTransition(format string, args ...interface{}) *Error {
	return newf(KindInvalidStateTransition, format, args...)
}

// InsufficientStock reports a decrease that would drop stock below reservations
func InsufficientStock(format string, args ...interface{}) *Error {
	return newf(KindInsufficientStock, format, args...)
}

// Conflict reports a duplicate key on create
func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

// Wrap classifies err under kind, keeping it as the cause
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the message of the first *Error in err's chain
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
