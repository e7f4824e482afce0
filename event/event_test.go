package event_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/umf/core"
	"github.com/hupe1980/umf/event"
)

func TestNewHeader(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	h := event.NewHeader("sess-1")

	assert.True(t, strings.HasPrefix(h.ID, "evt_"))
	assert.Equal(t, "sess-1", h.SessionID)
	assert.Zero(t, h.Sequence)
	assert.Equal(t, time.UTC, h.Timestamp.Location())
	assert.True(t, h.Timestamp.After(before))
	assert.Zero(t, h.Timestamp.Nanosecond()%int(time.Millisecond))
	assert.NotEqual(t, h.ID, event.NewHeader("sess-1").ID)
}

func TestConstructorsRoundTrip(t *testing.T) {
	msgEvent := event.NewMessageEvent("s", core.Assistant("hello")).WithTokenCount(2).WithProjectHash("p1")
	call := event.NewToolCallEvent("s", msgEvent.ID, event.ToolCall{ID: "c1", Name: "calc"})
	executing, err := call.Transition(event.StatusExecuting)
	require.NoError(t, err)
	result := event.NewToolResultEvent("s", executing.ID, event.ToolResult{ToolCallID: "c1", Content: 42.0}).WithDuration(time.Second)
	signal := event.NewSystemSignalEvent("s", event.SignalInterrupt, map[string]string{})
	errEvent := event.NewErrorEventFromError("s", "handler", errors.New("boom"))

	events := []event.Event{msgEvent, call, executing, result, signal, errEvent}
	for i, ev := range events {
		env := event.Wrap(ev.WithSequence(uint64(i + 1)))
		line, err := event.ToJSONLine(env)
		require.NoError(t, err)

		decoded, err := event.FromJSONLine(line)
		require.NoError(t, err)
		assert.Equal(t, env, decoded)
		assert.Equal(t, uint64(i+1), decoded.Header().Sequence)
	}

	assert.Equal(t, map[string]any{}, call.ToolCall.Arguments)
	assert.Nil(t, signal.Detail)
	assert.Equal(t, "boom", errEvent.Message)
}

func TestToolCallEvent_Transition(t *testing.T) {
	call := event.NewToolCallEvent("s", "evt_m", event.ToolCall{ID: "c1", Name: "calc"}).
		WithMCPContext(event.MCPContext{ServerName: "math"})

	next, err := call.Transition(event.StatusExecuting)
	require.NoError(t, err)
	assert.Equal(t, event.StatusPending, call.Status, "original is unchanged")
	assert.Equal(t, event.StatusExecuting, next.Status)
	assert.NotEqual(t, call.ID, next.ID)
	assert.Equal(t, call.ToolCall, next.ToolCall)
	assert.Equal(t, call.MCPContext, next.MCPContext)

	done, err := next.Transition(event.StatusCompleted)
	require.NoError(t, err)

	_, err = done.Transition(event.StatusExecuting)
	var tErr *event.TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, event.StatusCompleted, tErr.From)
}

func TestToolCall_Conversions(t *testing.T) {
	block := core.NewToolUseBlock("c1", "search", map[string]any{"q": "go"})
	call := event.ToolCallFromBlock(block)
	assert.Equal(t, event.ToolCall{ID: "c1", Name: "search", Arguments: map[string]any{"q": "go"}}, call)

	wire, err := call.Core()
	require.NoError(t, err)
	assert.Equal(t, `{"q":"go"}`, wire.Function.Arguments)

	back, err := event.ToolCallFromCore(wire)
	require.NoError(t, err)
	assert.Equal(t, call, back)

	_, err = event.ToolCallFromCore(core.ToolCall{ID: "x", Function: core.FunctionCall{Arguments: "nope"}})
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestToolResultEvent_ToolMessage(t *testing.T) {
	tests := []struct {
		content any
		want    string
	}{
		{content: "plain", want: "plain"},
		{content: nil, want: ""},
		{content: map[string]any{"ok": true}, want: `{"ok":true}`},
		{content: []any{1.0, "a"}, want: `[1,"a"]`},
	}

	for _, tt := range tests {
		res := event.NewToolResultEvent("s", "evt_c", event.ToolResult{ToolCallID: "c1", Content: tt.content})
		msg, err := res.ToolMessage("calc")
		require.NoError(t, err)
		assert.Equal(t, core.ToolResult("c1", "calc", tt.want), msg)
		assert.NoError(t, msg.Validate())
	}
}

func TestEnvelope_Accessors(t *testing.T) {
	env := event.Wrap(event.NewErrorEvent("s", "parse", "bad line").ForToolCall("c1"))

	_, ok := env.AsMessage()
	assert.False(t, ok)
	_, ok = env.AsToolCall()
	assert.False(t, ok)
	_, ok = env.AsToolResult()
	assert.False(t, ok)
	_, ok = env.AsSystemSignal()
	assert.False(t, ok)

	e, ok := env.AsError()
	require.True(t, ok)
	assert.Equal(t, "c1", e.ToolCallID)
	assert.Equal(t, event.TypeError, env.EventType)
	assert.Equal(t, "s", env.Header().SessionID)

	assert.Equal(t, event.Header{}, event.Envelope{}.Header())
}
