package eventlog

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/umf/event"
	"github.com/hupe1980/umf/logging"
)

// Appender appends events to a log, assigning their sequence numbers.
type Appender interface {
	Append(e event.Event) (event.Envelope, error)
}

// Store is a readable event log.
type Store interface {
	Appender
	ReadAll() ([]event.Envelope, error)
}

var (
	// ErrBlankLine is reported for empty lines inside a log.
	ErrBlankLine = errors.New("blank line in event log")

	// ErrSequenceRegression is reported when a sequence does not increase.
	ErrSequenceRegression = errors.New("sequence is not strictly increasing")

	// ErrNilEvent is returned when appending a nil event.
	ErrNilEvent = errors.New("cannot append nil event")

	// ErrSequenceExhausted is returned once the last sequence is math.MaxUint64.
	ErrSequenceExhausted = errors.New("event sequence exhausted")
)

// LineError locates a failure while reading a log.
type LineError struct {
	Line int // 1-based
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("event log line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Options configures writers and stores.
type Options struct {
	// Logger receives append and rejection records.
	Logger logging.Logger
	// StartSequence is the last sequence already present in the log; the
	// first append is assigned StartSequence+1.
	StartSequence uint64
	// EnforceTransitions rejects tool_call events whose status may not follow
	// the call's previously appended status.
	EnforceTransitions bool
}

func newOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Logger:             logging.NoOpLogger{},
		EnforceTransitions: true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return opts
}

// sequencer owns the sequence counter and status tracker shared by Writer
// and InMemoryStore. Callers serialise access.
type sequencer struct {
	last    uint64
	tracker event.StatusTracker
	enforce bool
	logger  logging.Logger
}

func newSequencer(opts Options) sequencer {
	return sequencer{last: opts.StartSequence, enforce: opts.EnforceTransitions, logger: opts.Logger}
}

// stamp assigns the next sequence to e and checks the status policy without
// changing any state.
func (s *sequencer) stamp(e event.Event) (event.Envelope, error) {
	if e == nil {
		return event.Envelope{}, ErrNilEvent
	}
	if s.last == math.MaxUint64 {
		return event.Envelope{}, ErrSequenceExhausted
	}
	env := event.Wrap(e.WithSequence(s.last + 1))
	if call, ok := env.AsToolCall(); ok && s.enforce {
		if err := s.tracker.Check(call); err != nil {
			s.logger.Warn("Event rejected", "event_type", string(env.EventType), "sequence", env.Sequence, "error", err.Error())
			return event.Envelope{}, err
		}
	}
	return env, nil
}

// commit records env as appended.
func (s *sequencer) commit(env event.Envelope) {
	s.last = env.Sequence
	if call, ok := env.AsToolCall(); ok {
		s.tracker.Record(call.ToolCall.ID, call.Status)
	}
	logging.LogAppend(s.logger, env)
}

// recover replays an existing log so appends continue after it.
func (s *sequencer) recover(envs []event.Envelope) error {
	if s.enforce {
		if err := event.ValidateStatusSequence(envs); err != nil {
			return fmt.Errorf("existing log violates status policy: %w", err)
		}
	}
	for i, env := range envs {
		if i > 0 && env.Sequence <= s.last {
			return &LineError{Line: i + 1, Err: fmt.Errorf("%w: %d after %d", ErrSequenceRegression, env.Sequence, s.last)}
		}
		s.last = env.Sequence
		if call, ok := env.AsToolCall(); ok {
			s.tracker.Record(call.ToolCall.ID, call.Status)
		}
	}
	return nil
}
