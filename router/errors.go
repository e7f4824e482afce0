package router

import (
	"errors"
	"fmt"

	"github.com/hupe1980/umf/core"
)

// ErrorKind classifies router failures on the wire.
type ErrorKind string

const (
	KindUnknownOperation ErrorKind = "UnknownOperation"
	KindParseError       ErrorKind = "ParseError"
	KindValidationError  ErrorKind = "ValidationError"
	KindHandlerError     ErrorKind = "HandlerError"
)

// ErrUnknownOperation matches an *Error of kind KindUnknownOperation.
var ErrUnknownOperation = errors.New("unknown operation")

// Error is returned by Dispatch and rendered into the error part of a
// Response.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is ErrUnknownOperation for that kind.
func (e *Error) Is(target error) bool {
	return target == ErrUnknownOperation && e.Kind == KindUnknownOperation
}

func unknownOperation(op string) *Error {
	return &Error{Kind: KindUnknownOperation, Message: fmt.Sprintf("unknown operation %q", op)}
}

// classify maps a handler or decode failure to its wire kind.
func classify(err error) *Error {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr
	}

	var pe *core.ParseError
	if errors.As(err, &pe) {
		return &Error{Kind: KindParseError, Message: err.Error(), Err: err}
	}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return &Error{Kind: KindValidationError, Message: err.Error(), Err: err}
	}

	return &Error{Kind: KindHandlerError, Message: err.Error(), Err: err}
}
