package eventlog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/umf/core"
	"github.com/hupe1980/umf/event"
	"github.com/hupe1980/umf/eventlog"
	"github.com/hupe1980/umf/internal/testutil"
)

var _ eventlog.Store = (*eventlog.InMemoryStore)(nil)

func TestInMemoryStore_AppendAndQuery(t *testing.T) {
	s := eventlog.NewInMemoryStore()

	appendAll := []event.Event{
		testutil.NewEventBuilder().Session("a").Message(core.User("hi")).Build(),
		testutil.NewEventBuilder().Session("a").ToolCall("c1", "search", nil, event.StatusPending).Build(),
		testutil.NewEventBuilder().Session("b").Message(core.User("other")).Build(),
		testutil.NewEventBuilder().Session("a").ToolCall("c1", "search", nil, event.StatusCompleted).Build(),
		testutil.NewEventBuilder().Session("a").ToolResult("c1", "found", false).Build(),
		event.NewErrorEvent("a", "timeout", "too slow").ForToolCall("c1"),
		testutil.NewEventBuilder().Session("a").ToolCall("c2", "fetch", nil, event.StatusPending).Build(),
	}
	for _, e := range appendAll {
		_, err := s.Append(e)
		require.NoError(t, err)
	}

	assert.Equal(t, 7, s.Len())

	all, err := s.ReadAll()
	require.NoError(t, err)
	for i, env := range all {
		assert.Equal(t, uint64(i+1), env.Sequence)
	}

	sessA := s.BySession("a")
	assert.Len(t, sessA, 6)
	assert.Len(t, s.BySession("b"), 1)
	assert.Empty(t, s.BySession("missing"))

	c1 := s.ByToolCall("c1")
	require.Len(t, c1, 4)
	assert.Equal(t, event.TypeToolCall, c1[0].EventType)
	assert.Equal(t, event.TypeToolCall, c1[1].EventType)
	assert.Equal(t, event.TypeToolResult, c1[2].EventType)
	assert.Equal(t, event.TypeError, c1[3].EventType)

	status, ok := s.Status("c1")
	require.True(t, ok)
	assert.Equal(t, event.StatusCompleted, status)

	_, ok = s.Status("nope")
	assert.False(t, ok)
}

func TestInMemoryStore_ReadAllReturnsCopy(t *testing.T) {
	s := eventlog.NewInMemoryStore()
	_, err := s.Append(testutil.NewEventBuilder().Build())
	require.NoError(t, err)

	all, err := s.ReadAll()
	require.NoError(t, err)
	all[0] = event.Envelope{}

	again, err := s.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), again[0].Sequence)
}

func TestInMemoryStore_RejectsIllegalTransition(t *testing.T) {
	s := eventlog.NewInMemoryStore()

	_, err := s.Append(testutil.NewEventBuilder().ToolCall("c1", "x", nil, event.StatusFailed).Build())
	require.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestInMemoryStore_WriteToAndLoad(t *testing.T) {
	s := eventlog.NewInMemoryStore()
	_, err := s.Append(testutil.NewEventBuilder().Message(core.User("one\ntwo")).Build())
	require.NoError(t, err)
	_, err = s.Append(testutil.NewEventBuilder().ToolCall("c1", "x", nil, event.StatusExecuting).Build())
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	loaded, err := eventlog.LoadInMemoryStore(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	all, err := loaded.ReadAll()
	require.NoError(t, err)
	msg, ok := all[0].AsMessage()
	require.True(t, ok)
	assert.Equal(t, "one\ntwo", msg.Message.ToText())

	env, err := loaded.Append(testutil.NewEventBuilder().ToolCall("c1", "x", nil, event.StatusCompleted).Build())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), env.Sequence)

	_, err = loaded.Append(testutil.NewEventBuilder().ToolCall("c1", "x", nil, event.StatusExecuting).Build())
	assert.Error(t, err)
}
