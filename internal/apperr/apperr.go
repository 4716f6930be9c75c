// Package apperr defines the error kinds surfaced by the service layer.
// Every error carries a kind and a human-readable reason.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindDenied            Kind = "DENIED"
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindCapacityExceeded  Kind = "CAPACITY_EXCEEDED"
	KindAlreadyRegistered Kind = "ALREADY_REGISTERED"
	KindInvalidCode       Kind = "INVALID_CODE"
	KindInvalidForCheckIn Kind = "INVALID_FOR_CHECK_IN"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindInvalid           Kind = "INVALID"
	KindConflict          Kind = "CONFLICT"
	KindTransient         Kind = "TRANSIENT"
	KindInternal          Kind = "INTERNAL"
)

type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when the target carries no
// reason, so errors.Is(err, apperr.ErrNotFound) works for every NotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrDenied            = &Error{Kind: KindDenied}
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
	ErrCapacityExceeded  = &Error{Kind: KindCapacityExceeded}
	ErrAlreadyRegistered = &Error{Kind: KindAlreadyRegistered}
	ErrInvalidCode       = &Error{Kind: KindInvalidCode}
	ErrInvalidForCheckIn = &Error{Kind: KindInvalidForCheckIn}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrInvalid           = &Error{Kind: KindInvalid}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrTransient         = &Error{Kind: KindTransient}
)

func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, reason string) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func NotFound(reason string) *Error { return New(KindNotFound, reason) }

func Denied(reason string) *Error { return New(KindDenied, reason) }

func Invalid(reason string) *Error { return New(KindInvalid, reason) }

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the reason of the first *Error in err's chain.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Reason != "" {
			return e.Reason
		}
		return string(e.Kind)
	}
	return ""
}

// Retryable reports whether the operation that produced err may be
// attempted again.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindTransient:
		return true
	}
	return false
}
