package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/umf/core"
)

// Envelope is the type-erased holder stored in a log. EventType, Sequence
// and Timestamp mirror the wrapped event so a log can be scanned without a
// type switch. On the wire the envelope is a single flat object: event_type
// followed by the event's own fields.
type Envelope struct {
	EventType Type
	Sequence  uint64
	Timestamp time.Time
	Event     Event
}

// Wrap builds the envelope for e. The event is stored in the form FromJSONLine
// yields for its encoding: the timestamp is UTC without a monotonic reading,
// and tool arguments, tool_use inputs and result content hold decoded JSON
// values (float64 numbers, []any, map[string]any).
func Wrap(e Event) Envelope {
	e = e.normalized()
	h := e.EventHeader()
	return Envelope{
		EventType: e.EventType(),
		Sequence:  h.Sequence,
		Timestamp: h.Timestamp,
		Event:     e,
	}
}

// Header returns the wrapped event's header.
func (env Envelope) Header() Header {
	if env.Event == nil {
		return Header{}
	}
	return env.Event.EventHeader()
}

// AsMessage returns the wrapped MessageEvent, if that is the variant.
func (env Envelope) AsMessage() (MessageEvent, bool) {
	e, ok := env.Event.(MessageEvent)
	return e, ok
}

// AsToolCall returns the wrapped ToolCallEvent, if that is the variant.
func (env Envelope) AsToolCall() (ToolCallEvent, bool) {
	e, ok := env.Event.(ToolCallEvent)
	return e, ok
}

// AsToolResult returns the wrapped ToolResultEvent, if that is the variant.
func (env Envelope) AsToolResult() (ToolResultEvent, bool) {
	e, ok := env.Event.(ToolResultEvent)
	return e, ok
}

// AsSystemSignal returns the wrapped SystemSignalEvent, if that is the variant.
func (env Envelope) AsSystemSignal() (SystemSignalEvent, bool) {
	e, ok := env.Event.(SystemSignalEvent)
	return e, ok
}

// AsError returns the wrapped ErrorEvent, if that is the variant.
func (env Envelope) AsError() (ErrorEvent, bool) {
	e, ok := env.Event.(ErrorEvent)
	return e, ok
}

// Validate checks that the envelope holds an event and that its mirrored
// fields agree with it.
func (env Envelope) Validate() error {
	if env.Event == nil {
		return &core.ValidationError{Field: "event", Message: "envelope holds no event"}
	}
	if env.EventType != env.Event.EventType() {
		return &core.ValidationError{
			Field:   "event_type",
			Value:   string(env.EventType),
			Message: fmt.Sprintf("does not match wrapped %s event", env.Event.EventType()),
		}
	}
	h := env.Event.EventHeader()
	if env.Sequence != h.Sequence {
		return &core.ValidationError{
			Field:   "sequence",
			Value:   env.Sequence,
			Message: fmt.Sprintf("does not match wrapped event sequence %d", h.Sequence),
		}
	}
	if !env.Timestamp.Equal(h.Timestamp) {
		return &core.ValidationError{Field: "timestamp", Message: "does not match wrapped event timestamp"}
	}
	return nil
}

// MarshalJSON encodes the envelope in its flat line form.
func (env Envelope) MarshalJSON() ([]byte, error) {
	return encode(env)
}

// UnmarshalJSON decodes the flat line form.
func (env *Envelope) UnmarshalJSON(data []byte) error {
	decoded, err := decode(data)
	if err != nil {
		return err
	}
	*env = decoded
	return nil
}

// resultText renders a tool result payload as message content.
func resultText(content any) (string, error) {
	switch c := content.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	default:
		data, err := json.Marshal(c)
		if err != nil {
			return "", fmt.Errorf("failed to encode tool result: %w", err)
		}
		return string(data), nil
	}
}
