package testutil

import (
	"fmt"
	"time"

	"github.com/hupe1980/umf/core"
	"github.com/hupe1980/umf/event"
)

// LogBuilder assembles an ordered log of envelopes with sequences 1..n,
// ids evt_1..evt_n and timestamps one second apart starting at BaseTime.
// Example:
//
//	envs := NewLogBuilder("sess-1").Message(core.User("hi")).ToolCall("c1", "search", event.StatusPending).Build()
type LogBuilder struct {
	session string
	events  []*EventBuilder
}

// NewLogBuilder creates a builder for one session's log.
func NewLogBuilder(session string) *LogBuilder {
	return &LogBuilder{session: session}
}

func (b *LogBuilder) next() *EventBuilder {
	n := len(b.events) + 1
	eb := NewEventBuilder().
		Session(b.session).
		ID(fmt.Sprintf("evt_%d", n)).
		Sequence(uint64(n)).
		At(BaseTime.Add(time.Duration(n) * time.Second))
	b.events = append(b.events, eb)
	return eb
}

// Message appends a message event (chainable).
func (b *LogBuilder) Message(msg core.Message) *LogBuilder {
	b.next().Message(msg)
	return b
}

// ToolCall appends a tool call event in the given status (chainable).
func (b *LogBuilder) ToolCall(callID, name string, status event.Status) *LogBuilder {
	b.next().ToolCall(callID, name, nil, status)
	return b
}

// ToolResult appends a tool result event (chainable).
func (b *LogBuilder) ToolResult(callID string, content any) *LogBuilder {
	b.next().ToolResult(callID, content, false)
	return b
}

// Signal appends a system signal event (chainable).
func (b *LogBuilder) Signal(signal string) *LogBuilder {
	b.next().Signal(signal)
	return b
}

// Events returns the built events in order.
func (b *LogBuilder) Events() []event.Event {
	out := make([]event.Event, 0, len(b.events))
	for _, eb := range b.events {
		out = append(out, eb.Build())
	}
	return out
}

// Build returns the built envelopes in order.
func (b *LogBuilder) Build() []event.Envelope {
	out := make([]event.Envelope, 0, len(b.events))
	for _, e := range b.Events() {
		out = append(out, event.Wrap(e))
	}
	return out
}
