package errs

import (
	"errors"
	"fmt"
)

// Application error codes. Each code maps to exactly one HTTP status in the
// controllers package.
const (
	ENOTFOUND     = "not_found"
	ECONFLICT     = "conflict"
	EFORBIDDEN    = "forbidden"
	EINVALIDSTATE = "invalid_state"
	EINVALID      = "invalid"
	EUNAUTHORIZED = "unauthorized"
	EINTERNAL     = "internal"
)

// Error carries a code, a public message that is safe to show to API
// clients, and an optional private cause that only ends up in logs.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so errors.Is(err, errs.NotFound) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is comparisons by code.
var (
	NotFound     = &Error{Code: ENOTFOUND}
	Conflict     = &Error{Code: ECONFLICT}
	Forbidden    = &Error{Code: EFORBIDDEN}
	InvalidState = &Error{Code: EINVALIDSTATE}
	Invalid      = &Error{Code: EINVALID}
	Unauthorized = &Error{Code: EUNAUTHORIZED}
	Internal     = &Error{Code: EINTERNAL}
)

func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a private cause to a public message.
func Wrap(code string, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Internalf wraps an unexpected failure. An error that already carries a code
// is returned unchanged so typed business errors are never downgraded.
func Internalf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Code: EINTERNAL, Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrorCode returns the code of the first *Error in the chain, EINTERNAL for
// any other non-nil error and "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the public message. Errors without one get a generic
// text so internals are never leaked.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}
