package a2s

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of them with errors.Is.
var (
	ErrSetup       = errors.New("could not create socket")
	ErrConnect     = errors.New("could not connect")
	ErrSend        = errors.New("could not send")
	ErrReceive     = errors.New("could not receive")
	ErrInvalidData = errors.New("invalid data")
)

// Error carries the kind of a failed query together with its cause.
type Error struct {
	Kind error
	Err  error
	Op   string
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("a2s %s: %v", e.Op, e.Kind)
	}

	return fmt.Sprintf("a2s %s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// NewError wraps err with the given kind. It is exported for the socket owner,
// which reports setup and connect failures with the same kinds.
func NewError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// wrap tags a transport failure with kind unless the conn already reported a typed error.
func wrap(kind error, op string, err error) error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return NewError(kind, op, err)
}

func invalidData(op string, format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidData, Op: op, Err: fmt.Errorf(format, args...)}
}
