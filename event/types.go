package event

import (
	"encoding/json"

	"github.com/hupe1980/umf/core"
)

// Type is the envelope discriminator selecting the concrete event variant.
type Type string

const (
	TypeMessage      Type = "message"
	TypeToolCall     Type = "tool_call"
	TypeToolResult   Type = "tool_result"
	TypeSystemSignal Type = "system_signal"
	TypeError        Type = "error"
)

// Types lists every event type in declaration order.
func Types() []Type {
	return []Type{TypeMessage, TypeToolCall, TypeToolResult, TypeSystemSignal, TypeError}
}

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	_, ok := decoders[t]
	return ok
}

func (t Type) String() string { return string(t) }

// Status is the recorded lifecycle state of a tool call. It is data attached
// to a ToolCallEvent; a transition is recorded by appending a new event.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the five named states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusExecuting, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further status may follow s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether a call recorded as s may next be recorded as
// to. Non-terminal states may repeat; terminal states are final.
func (s Status) CanTransition(to Status) bool {
	if !to.Valid() {
		return false
	}
	switch s {
	case StatusPending:
		return true
	case StatusExecuting:
		return to != StatusPending
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }

// UnmarshalJSON rejects statuses outside the closed set.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return core.NewInvalidTypeError("status", err)
	}
	st := Status(str)
	if !st.Valid() {
		return core.NewUnknownDiscriminatorError("status", str)
	}
	*s = st
	return nil
}
