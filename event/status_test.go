package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/umf/core"
	"github.com/hupe1980/umf/event"
	"github.com/hupe1980/umf/internal/testutil"
)

func TestStatus_CanTransition(t *testing.T) {
	all := []event.Status{
		event.StatusPending, event.StatusExecuting,
		event.StatusCompleted, event.StatusFailed, event.StatusCancelled,
	}

	allowed := map[event.Status][]event.Status{
		event.StatusPending:   all,
		event.StatusExecuting: {event.StatusExecuting, event.StatusCompleted, event.StatusFailed, event.StatusCancelled},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
		assert.False(t, from.CanTransition("bogus"))
	}

	assert.False(t, event.StatusPending.IsTerminal())
	assert.False(t, event.StatusExecuting.IsTerminal())
	assert.True(t, event.StatusCancelled.IsTerminal())
}

func TestValidateStatusSequence(t *testing.T) {
	tests := []struct {
		name    string
		log     *testutil.LogBuilder
		wantErr *event.TransitionError
	}{
		{
			name: "full lifecycle",
			log: testutil.NewLogBuilder("s").
				Message(core.User("hi")).
				ToolCall("c1", "search", event.StatusPending).
				ToolCall("c1", "search", event.StatusExecuting).
				ToolCall("c1", "search", event.StatusCompleted).
				ToolResult("c1", "ok"),
		},
		{
			name: "starts executing",
			log: testutil.NewLogBuilder("s").
				ToolCall("c1", "search", event.StatusExecuting).
				ToolCall("c1", "search", event.StatusFailed),
		},
		{
			name: "pending cancelled",
			log: testutil.NewLogBuilder("s").
				ToolCall("c1", "search", event.StatusPending).
				ToolCall("c1", "search", event.StatusCancelled),
		},
		{
			name: "interleaved calls",
			log: testutil.NewLogBuilder("s").
				ToolCall("c1", "a", event.StatusPending).
				ToolCall("c2", "b", event.StatusPending).
				ToolCall("c2", "b", event.StatusCompleted).
				ToolCall("c1", "a", event.StatusExecuting).
				ToolCall("c1", "a", event.StatusExecuting),
		},
		{
			name: "starts terminal",
			log: testutil.NewLogBuilder("s").
				Message(core.User("hi")).
				ToolCall("c1", "search", event.StatusCompleted),
			wantErr: &event.TransitionError{CallID: "c1", To: event.StatusCompleted, Sequence: 2},
		},
		{
			name: "leaves terminal",
			log: testutil.NewLogBuilder("s").
				ToolCall("c1", "search", event.StatusPending).
				ToolCall("c1", "search", event.StatusFailed).
				ToolCall("c1", "search", event.StatusExecuting),
			wantErr: &event.TransitionError{CallID: "c1", From: event.StatusFailed, To: event.StatusExecuting, Sequence: 3},
		},
		{
			name: "back to pending",
			log: testutil.NewLogBuilder("s").
				ToolCall("c9", "search", event.StatusExecuting).
				ToolCall("c9", "search", event.StatusPending),
			wantErr: &event.TransitionError{CallID: "c9", From: event.StatusExecuting, To: event.StatusPending, Sequence: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := event.ValidateStatusSequence(tt.log.Build())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			var tErr *event.TransitionError
			require.ErrorAs(t, err, &tErr)
			assert.Equal(t, tt.wantErr, tErr)
		})
	}
}

func TestStatusTracker(t *testing.T) {
	var tracker event.StatusTracker

	_, ok := tracker.Status("c1")
	assert.False(t, ok)

	call := event.NewToolCallEvent("s", "evt_m", event.ToolCall{ID: "c1", Name: "calc"})
	require.NoError(t, tracker.Observe(call))

	bad := call
	bad.Status = event.StatusPending
	require.NoError(t, tracker.Check(bad))

	done, err := call.Transition(event.StatusCompleted)
	require.NoError(t, err)
	require.NoError(t, tracker.Observe(done))

	other := event.NewToolCallEvent("s", "evt_m", event.ToolCall{ID: "c2", Name: "calc"})
	require.NoError(t, tracker.Observe(other))

	s, ok := tracker.Status("c1")
	require.True(t, ok)
	assert.Equal(t, event.StatusCompleted, s)
	assert.Equal(t, []string{"c2"}, tracker.Pending())

	assert.Error(t, tracker.Check(call))
	s, _ = tracker.Status("c1")
	assert.Equal(t, event.StatusCompleted, s, "failed check must not change state")
}

func TestTransitionError_Error(t *testing.T) {
	err := &event.TransitionError{CallID: "c1", From: event.StatusCompleted, To: event.StatusPending, Sequence: 7}
	assert.Equal(t, `illegal status transition for tool call "c1": completed -> pending at sequence 7`, err.Error())

	err = &event.TransitionError{CallID: "c1", To: event.StatusFailed}
	assert.Equal(t, `illegal status transition for tool call "c1": <none> -> failed`, err.Error())
}
