package event

import (
	"fmt"
	"sort"
)

// TransitionError reports a recorded status that may not follow the previous
// status of the same tool call. From is empty for the first recorded status.
type TransitionError struct {
	CallID   string
	From     Status
	To       Status
	Sequence uint64
}

func (e *TransitionError) Error() string {
	from := string(e.From)
	if from == "" {
		from = "<none>"
	}
	msg := fmt.Sprintf("illegal status transition for tool call %q: %s -> %s", e.CallID, from, e.To)
	if e.Sequence > 0 {
		msg += fmt.Sprintf(" at sequence %d", e.Sequence)
	}
	return msg
}

// StatusTracker follows the last recorded status of every tool call in one
// log. The zero value is ready to use. It is not safe for concurrent use.
type StatusTracker struct {
	last map[string]Status
}

// Check reports whether e may be recorded next without updating the tracker.
// A call must first appear as pending or executing and never leaves a
// terminal state.
func (t *StatusTracker) Check(e ToolCallEvent) error {
	prev, seen := t.last[e.ToolCall.ID]
	if !seen {
		if e.Status == StatusPending || e.Status == StatusExecuting {
			return nil
		}
		return &TransitionError{CallID: e.ToolCall.ID, To: e.Status, Sequence: e.Sequence}
	}
	if !prev.CanTransition(e.Status) {
		return &TransitionError{CallID: e.ToolCall.ID, From: prev, To: e.Status, Sequence: e.Sequence}
	}
	return nil
}

// Observe checks e and, if legal, records its status.
func (t *StatusTracker) Observe(e ToolCallEvent) error {
	if err := t.Check(e); err != nil {
		return err
	}
	t.Record(e.ToolCall.ID, e.Status)
	return nil
}

// Record sets the last status of callID without checking the transition.
func (t *StatusTracker) Record(callID string, s Status) {
	if t.last == nil {
		t.last = make(map[string]Status)
	}
	t.last[callID] = s
}

// Status returns the last recorded status of a call.
func (t *StatusTracker) Status(callID string) (Status, bool) {
	s, ok := t.last[callID]
	return s, ok
}

// Pending returns the sorted ids of calls whose last status is not terminal.
func (t *StatusTracker) Pending() []string {
	var ids []string
	for id, s := range t.last {
		if !s.IsTerminal() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ValidateStatusSequence checks the log-level status invariant over envs in
// log order. Non tool_call envelopes are ignored. The first violation is
// returned as *TransitionError.
func ValidateStatusSequence(envs []Envelope) error {
	var tracker StatusTracker
	for _, env := range envs {
		call, ok := env.AsToolCall()
		if !ok {
			continue
		}
		if err := tracker.Observe(call); err != nil {
			return err
		}
	}
	return nil
}
