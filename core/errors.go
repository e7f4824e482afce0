package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/umf/internal/util"
)

// ParseErrorKind categorizes why a decode failed.
type ParseErrorKind string

const (
	// ParseMalformedJSON indicates the input was not valid JSON.
	ParseMalformedJSON ParseErrorKind = "malformed_json"
	// ParseMissingField indicates a required field was absent or null.
	ParseMissingField ParseErrorKind = "missing_field"
	// ParseInvalidType indicates a field held a JSON value of the wrong type.
	ParseInvalidType ParseErrorKind = "invalid_type"
	// ParseUnknownDiscriminator indicates a type/role value outside its closed set.
	ParseUnknownDiscriminator ParseErrorKind = "unknown_discriminator"
	// ParseUnknownEventType indicates an envelope event_type outside its closed set.
	ParseUnknownEventType ParseErrorKind = "unknown_event_type"
)

var (
	// ErrParse matches every *ParseError via errors.Is.
	ErrParse = errors.New("parse error")

	// ErrUnknownEventType matches a *ParseError of kind ParseUnknownEventType.
	ErrUnknownEventType = errors.New("unknown event type")
)

// ParseError is returned by every decode entry point (json.Unmarshal on model
// types, ParseMessage, ParseBlock, envelope line decoding). It is always
// recoverable: callers report it and continue.
type ParseError struct {
	Kind  ParseErrorKind `json:"kind"`
	Field string         `json:"field,omitempty"` // Dotted path of the offending field
	Value string         `json:"value,omitempty"` // Offending discriminator value
	Err   error          `json:"-"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch e.Kind {
	case ParseMissingField:
		return fmt.Sprintf("parse error: missing required field %q", e.Field)
	case ParseUnknownDiscriminator:
		return fmt.Sprintf("parse error: unknown %s %q", e.Field, e.Value)
	case ParseUnknownEventType:
		return fmt.Sprintf("parse error: unknown event_type %q", e.Value)
	}

	msg := "parse error: " + string(e.Kind)
	if e.Field != "" {
		msg += " at " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying decoder error, if any.
func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is ErrParse, or ErrUnknownEventType for that kind.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrParse:
		return true
	case ErrUnknownEventType:
		return e.Kind == ParseUnknownEventType
	}
	return false
}

// NewMissingFieldError reports an absent required field.
func NewMissingFieldError(field string) *ParseError {
	return &ParseError{Kind: ParseMissingField, Field: field}
}

// NewUnknownDiscriminatorError reports a discriminator outside its closed set.
func NewUnknownDiscriminatorError(field, value string) *ParseError {
	return &ParseError{Kind: ParseUnknownDiscriminator, Field: field, Value: value}
}

// NewInvalidTypeError reports a field holding a value of the wrong JSON type.
func NewInvalidTypeError(field string, err error) *ParseError {
	return &ParseError{Kind: ParseInvalidType, Field: field, Err: err}
}

// WrapDecodeError converts an encoding/json error into a *ParseError. Errors
// that already are parse errors pass through so nested decoders keep the
// innermost (most precise) report.
func WrapDecodeError(field string, err error) error {
	if err == nil {
		return nil
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		f := field
		if typeErr.Field != "" {
			f = joinField(field, typeErr.Field)
		}
		return &ParseError{Kind: ParseInvalidType, Field: f, Err: err}
	}

	return &ParseError{Kind: ParseMalformedJSON, Field: field, Err: err}
}

// ValidationError reports structurally well-formed but semantically invalid
// input, e.g. a tool-role message without tool_call_id.
type ValidationError = util.ValidationError

func joinField(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}
