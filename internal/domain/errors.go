package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies every failure an operation can return.
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION"
	KindDuplicateSession    ErrorKind = "DUPLICATE_SESSION"
	KindAlreadyPunchedIn    ErrorKind = "ALREADY_PUNCHED_IN"
	KindAlreadyPunchedOut   ErrorKind = "ALREADY_PUNCHED_OUT"
	KindDuplicateTask       ErrorKind = "DUPLICATE_TASK"
	KindInvalidTransition   ErrorKind = "INVALID_TRANSITION"
	KindWindowClosed        ErrorKind = "WINDOW_CLOSED"
	KindFinalizationExpired ErrorKind = "FINALIZATION_EXPIRED"
	KindSessionLocked       ErrorKind = "SESSION_LOCKED"
	KindImmutableRecord     ErrorKind = "IMMUTABLE_RECORD"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindForbidden           ErrorKind = "FORBIDDEN"
	KindStorage             ErrorKind = "STORAGE"
	KindNotification        ErrorKind = "NOTIFICATION"
)

// Retryable reports whether a caller may retry the same request with backoff.
// Only collaborator failures qualify; every other kind is deterministic.
func (k ErrorKind) Retryable() bool {
	return k == KindStorage || k == KindNotification
}

// WindowBounds describes a configured window and the concrete occurrence an
// evaluation was made against, so callers can say when an action opens or
// when it closed.
type WindowBounds struct {
	Name     string
	Start    TimeOfDay
	End      TimeOfDay
	Grace    time.Duration
	OpensAt  time.Time
	ClosesAt time.Time
}

// Error is the single error type returned by workflow operations.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string        // set for validation failures
	Window  *WindowBounds // set for policy denials
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by kind so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrDuplicateSession    = &Error{Kind: KindDuplicateSession}
	ErrAlreadyPunchedIn    = &Error{Kind: KindAlreadyPunchedIn}
	ErrAlreadyPunchedOut   = &Error{Kind: KindAlreadyPunchedOut}
	ErrDuplicateTask       = &Error{Kind: KindDuplicateTask}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrWindowClosed        = &Error{Kind: KindWindowClosed}
	ErrFinalizationExpired = &Error{Kind: KindFinalizationExpired}
	ErrSessionLocked       = &Error{Kind: KindSessionLocked}
	ErrImmutableRecord     = &Error{Kind: KindImmutableRecord}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrStorage             = &Error{Kind: KindStorage}
	ErrNotification        = &Error{Kind: KindNotification}
)

// NewError builds an error of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a field-level validation error.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// NotFound reports a missing entity of the named type.
func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// Storage wraps a persistence collaborator failure.
func Storage(op string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: op, Cause: cause}
}

// Notification wraps a change-notification failure.
func Notification(op string, cause error) *Error {
	return &Error{Kind: KindNotification, Message: op, Cause: cause}
}

// WindowDenied builds a policy denial carrying the evaluated bounds.
func WindowDenied(kind ErrorKind, message string, bounds WindowBounds) *Error {
	b := bounds
	return &Error{Kind: kind, Message: message, Window: &b}
}

// KindOf returns the kind of err, or "" when err is not a workflow error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
