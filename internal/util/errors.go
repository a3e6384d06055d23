package util

import (
	"errors"
	"fmt"
)

// Kind classifies a business error so the HTTP layer can map it to a
// status code without inspecting message text.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
)

// Error is a business error with a short machine label and a human message.
type Error struct {
	Kind    Kind
	Label   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Label, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Label, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// ValidationError marks malformed or missing input.
func ValidationError(label, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Label: label, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError marks an absent referenced entity.
func NotFoundError(label, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Label: label, Message: fmt.Sprintf(format, args...)}
}

// ConflictError marks a duplicate unique key.
func ConflictError(label, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Label: label, Message: fmt.Sprintf(format, args...)}
}

// UnauthorizedError marks an authentication failure.
func UnauthorizedError(label, format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Label: label, Message: fmt.Sprintf(format, args...)}
}

// InternalError wraps an unexpected fault.
func InternalError(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Label: "internal_error", Message: message, cause: cause}
}

// ErrKind extracts the Kind of err, defaulting to KindInternal for
// unclassified faults.
func ErrKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError returns the typed error inside err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
