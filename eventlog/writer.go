package eventlog

import (
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/umf/event"
)

// Writer appends envelopes as JSON lines to an io.Writer. It owns the
// sequence counter: every appended event is re-stamped with the next
// strictly increasing sequence. Appends are serialised, so a Writer is safe
// for concurrent use. It does not coordinate with other processes writing
// the same destination.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	seq sequencer
}

// NewWriter creates a writer appending to w.
func NewWriter(w io.Writer, optFns ...func(o *Options)) *Writer {
	return &Writer{w: w, seq: newSequencer(newOptions(optFns))}
}

// Resume reads the existing log from r and returns a writer appending to w
// after its last sequence. Tool call statuses from the existing log are
// taken into account when enforcing transitions.
func Resume(r io.Reader, w io.Writer, optFns ...func(o *Options)) (*Writer, error) {
	envs, err := ReadAll(r)
	if err != nil {
		return nil, err
	}
	writer := NewWriter(w, optFns...)
	if err := writer.seq.recover(envs); err != nil {
		return nil, err
	}
	return writer, nil
}

// Append assigns the next sequence to e, checks the status policy and writes
// one line. Nothing is written when an error is returned.
func (w *Writer) Append(e event.Event) (event.Envelope, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	env, err := w.seq.stamp(e)
	if err != nil {
		return event.Envelope{}, err
	}

	line, err := event.ToJSONLine(env)
	if err != nil {
		return event.Envelope{}, err
	}

	if _, err := io.WriteString(w.w, line+"\n"); err != nil {
		return event.Envelope{}, fmt.Errorf("failed to write event %d: %w", env.Sequence, err)
	}

	w.seq.commit(env)
	return env, nil
}

// Sequence returns the sequence of the last appended event.
func (w *Writer) Sequence() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq.last
}
