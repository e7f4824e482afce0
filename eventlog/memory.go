package eventlog

import (
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/umf/event"
)

// InMemoryStore is a volatile Store keeping envelopes in a process local
// slice. It is safe for concurrent access and best suited for tests, caches
// or replaying a log that was read from elsewhere.
type InMemoryStore struct {
	mu   sync.RWMutex
	envs []event.Envelope
	seq  sequencer
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	return &InMemoryStore{seq: newSequencer(newOptions(optFns))}
}

// LoadInMemoryStore reads a JSON-lines log into a new store. Later appends
// continue after the last loaded sequence.
func LoadInMemoryStore(r io.Reader, optFns ...func(o *Options)) (*InMemoryStore, error) {
	envs, err := ReadAll(r)
	if err != nil {
		return nil, err
	}
	s := NewInMemoryStore(optFns...)
	if err := s.seq.recover(envs); err != nil {
		return nil, err
	}
	s.envs = envs
	return s, nil
}

// Append assigns the next sequence to e, checks the status policy and stores it.
func (s *InMemoryStore) Append(e event.Event) (event.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.seq.stamp(e)
	if err != nil {
		return event.Envelope{}, err
	}
	if err := env.Validate(); err != nil {
		return event.Envelope{}, err
	}

	s.envs = append(s.envs, env)
	s.seq.commit(env)
	return env, nil
}

// ReadAll returns a copy of every stored envelope in sequence order.
func (s *InMemoryStore) ReadAll() ([]event.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]event.Envelope(nil), s.envs...), nil
}

// Len returns the number of stored envelopes.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.envs)
}

// BySession returns the envelopes of one session in sequence order.
func (s *InMemoryStore) BySession(sessionID string) []event.Envelope {
	return s.filter(func(env event.Envelope) bool {
		return env.Header().SessionID == sessionID
	})
}

// ByToolCall returns every envelope referring to a tool call id: its
// tool_call status events, its tool_result and related error events.
func (s *InMemoryStore) ByToolCall(callID string) []event.Envelope {
	return s.filter(func(env event.Envelope) bool {
		switch e := env.Event.(type) {
		case event.ToolCallEvent:
			return e.ToolCall.ID == callID
		case event.ToolResultEvent:
			return e.Result.ToolCallID == callID
		case event.ErrorEvent:
			return e.ToolCallID == callID
		default:
			return false
		}
	})
}

// Status returns the last appended status of a tool call.
func (s *InMemoryStore) Status(callID string) (event.Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq.tracker.Status(callID)
}

// WriteTo writes the stored log as JSON lines to w.
func (s *InMemoryStore) WriteTo(w io.Writer) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, env := range s.envs {
		line, err := event.ToJSONLine(env)
		if err != nil {
			return n, err
		}
		written, err := io.WriteString(w, line+"\n")
		n += int64(written)
		if err != nil {
			return n, fmt.Errorf("failed to write event %d: %w", env.Sequence, err)
		}
	}
	return n, nil
}

func (s *InMemoryStore) filter(keep func(event.Envelope) bool) []event.Envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Envelope
	for _, env := range s.envs {
		if keep(env) {
			out = append(out, env)
		}
	}
	return out
}
