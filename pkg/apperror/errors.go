package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP layer.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindAuth          Kind = "auth"
	KindNetwork       Kind = "network"
	KindParse         Kind = "parse"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

// Error is the application error type. Message is user facing.
type Error struct {
	Kind    Kind
	Message string
	Status  int // upstream HTTP status, NetworkError only
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind and Message so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

var (
	ErrInvalidCredentials = &Error{Kind: KindAuth, Message: "Invalid credentials."}
	ErrDuplicateEmail     = &Error{Kind: KindConflict, Message: "Email already exists"}
	ErrServer             = &Error{Kind: KindInternal, Message: "Signup failed"}
	ErrLoginFailed        = &Error{Kind: KindInternal, Message: "Login failed"}
)

func Configuration(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func Network(status int, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNetwork, Status: status, Message: fmt.Sprintf(format, args...)}
}

func WrapNetwork(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNetwork, Message: fmt.Sprintf(format, args...) + ": " + err.Error(), Err: err}
}

func Parse(format string, args ...interface{}) *Error {
	return &Error{Kind: KindParse, Message: fmt.Sprintf(format, args...)}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsConfiguration reports whether err is a provider configuration error.
func IsConfiguration(err error) bool {
	return KindOf(err) == KindConfiguration
}
