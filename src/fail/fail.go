/*
Package fail holds the errors that operations report to their callers: bad
input, missing entities, insufficient relationship to a course, broken
business rules and bad credentials. The message of a fail.Error is safe to
show to a user.

Anything else (a database outage, a bug) is an internal error, usually an
*oops.Error, and KindOf reports it as Unknown.
*/
package fail

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Unknown Kind = iota
	Invalid
	NotFound
	Forbidden
	Conflict
	BadCredentials
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case NotFound:
		return "not found"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	case BadCredentials:
		return "bad credentials"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalid        = &Error{Kind: Invalid, Message: "invalid input"}
	ErrNotFound       = &Error{Kind: NotFound, Message: "not found"}
	ErrForbidden      = &Error{Kind: Forbidden, Message: "forbidden"}
	ErrConflict       = &Error{Kind: Conflict, Message: "conflict"}
	ErrBadCredentials = &Error{Kind: BadCredentials, Message: "bad credentials"}
)

func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Invalidf(format string, args ...any) error   { return New(Invalid, format, args...) }
func NotFoundf(format string, args ...any) error  { return New(NotFound, format, args...) }
func Forbiddenf(format string, args ...any) error { return New(Forbidden, format, args...) }
func Conflictf(format string, args ...any) error  { return New(Conflict, format, args...) }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Message returns the user-facing message of err, or fallback for internal
// errors.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
