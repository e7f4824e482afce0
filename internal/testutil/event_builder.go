package testutil

import (
	"time"

	"github.com/hupe1980/umf/core"
	"github.com/hupe1980/umf/event"
)

// BaseTime is the timestamp builders use unless told otherwise.
var BaseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// EventBuilder provides a fluent helper for constructing events in tests.
// Example:
//
//	ev := NewEventBuilder().Session("s1").Sequence(5).Message(core.User("hi")).Build()
//
// Chain only the parts you need; the last variant setter wins and a user
// message event is built when none is chosen.
type EventBuilder struct {
	header  event.Header
	variant func(h event.Header) event.Event
}

// NewEventBuilder creates a builder with session "sess-1" and BaseTime.
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{header: event.Header{
		ID:        event.NewID(),
		SessionID: "sess-1",
		Timestamp: BaseTime,
	}}
}

// ID overrides the generated event id (chainable).
func (b *EventBuilder) ID(id string) *EventBuilder { b.header.ID = id; return b }

// Session sets the session id (chainable).
func (b *EventBuilder) Session(id string) *EventBuilder { b.header.SessionID = id; return b }

// Project sets the project hash (chainable).
func (b *EventBuilder) Project(hash string) *EventBuilder { b.header.ProjectHash = hash; return b }

// Sequence sets the sequence number (chainable).
func (b *EventBuilder) Sequence(seq uint64) *EventBuilder { b.header.Sequence = seq; return b }

// At sets the timestamp (chainable).
func (b *EventBuilder) At(ts time.Time) *EventBuilder { b.header.Timestamp = ts; return b }

// Message builds a MessageEvent carrying msg (chainable).
func (b *EventBuilder) Message(msg core.Message) *EventBuilder {
	b.variant = func(h event.Header) event.Event {
		return event.MessageEvent{Header: h, Message: msg}
	}
	return b
}

// ToolCall builds a ToolCallEvent for callID in the given status (chainable).
func (b *EventBuilder) ToolCall(callID, name string, args map[string]any, status event.Status) *EventBuilder {
	if args == nil {
		args = map[string]any{}
	}
	b.variant = func(h event.Header) event.Event {
		return event.ToolCallEvent{
			Header:         h,
			MessageEventID: "evt_msg",
			ToolCall:       event.ToolCall{ID: callID, Name: name, Arguments: args},
			Status:         status,
		}
	}
	return b
}

// ToolResult builds a ToolResultEvent answering callID (chainable).
func (b *EventBuilder) ToolResult(callID string, content any, isError bool) *EventBuilder {
	b.variant = func(h event.Header) event.Event {
		return event.ToolResultEvent{
			Header:          h,
			ToolCallEventID: "evt_call",
			Result:          event.ToolResult{ToolCallID: callID, Content: content, IsError: isError},
		}
	}
	return b
}

// Signal builds a SystemSignalEvent (chainable).
func (b *EventBuilder) Signal(signal string) *EventBuilder {
	b.variant = func(h event.Header) event.Event {
		return event.SystemSignalEvent{Header: h, Signal: signal}
	}
	return b
}

// Error builds an ErrorEvent (chainable).
func (b *EventBuilder) Error(kind, message string) *EventBuilder {
	b.variant = func(h event.Header) event.Event {
		return event.ErrorEvent{Header: h, Kind: kind, Message: message}
	}
	return b
}

// Build constructs the event.
func (b *EventBuilder) Build() event.Event {
	if b.variant == nil {
		b.Message(core.User("hello"))
	}
	return b.variant(b.header)
}

// Envelope constructs the event and wraps it.
func (b *EventBuilder) Envelope() event.Envelope { return event.Wrap(b.Build()) }
