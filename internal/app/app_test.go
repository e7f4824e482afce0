package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/umf/core"
	"github.com/hupe1980/umf/event"
	"github.com/hupe1980/umf/internal/testutil"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := New()
	cmd.Reader = strings.NewReader(stdin)
	cmd.Writer = &out
	cmd.ErrWriter = &errOut
	err := cmd.Run(context.Background(), append([]string{"umf", "--log-level", "error"}, args...))
	return out.String(), err
}

func writeLog(t *testing.T, envs []event.Envelope) string {
	t.Helper()
	var sb strings.Builder
	for _, env := range envs {
		line, err := event.ToJSONLine(env)
		require.NoError(t, err)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

func TestOps(t *testing.T) {
	out, err := run(t, "", "ops")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 9)
	assert.True(t, strings.HasPrefix(lines[0], "create-system-message"))
	assert.True(t, strings.HasPrefix(lines[8], "count-tokens"))
}

func TestServe(t *testing.T) {
	stdin := strings.Join([]string{
		`{"operation":"count-tokens","payload":{"content":"Hello"}}`,
		``,
		`{"operation":"nope","payload":{}}`,
		`not json`,
	}, "\n")

	out, err := run(t, stdin, "serve")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3, "blank lines are skipped")

	var first struct {
		Status string `json:"status"`
		Result int    `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "success", first.Status)
	assert.Equal(t, 8, first.Result)

	assert.Contains(t, lines[1], `"kind":"UnknownOperation"`)
	assert.Contains(t, lines[2], `"kind":"ParseError"`)
}

func TestCheckLog(t *testing.T) {
	path := writeLog(t, testutil.NewLogBuilder("s1").
		Message(core.User("hi")).
		ToolCall("c1", "search", event.StatusPending).
		ToolCall("c2", "fetch", event.StatusPending).
		ToolCall("c1", "search", event.StatusExecuting).
		ToolCall("c2", "fetch", event.StatusCompleted).
		Build())

	out, err := run(t, "", "check-log", path)
	require.NoError(t, err)
	assert.Contains(t, out, "events: 5\n")
	assert.Contains(t, out, "sessions: 1\n")
	assert.Contains(t, out, "last sequence: 5\n")
	assert.Contains(t, out, "unfinished tool calls: c1\n")
}

func TestCheckLog_Stdin(t *testing.T) {
	envs := testutil.NewLogBuilder("s1").Message(core.User("hi")).Build()
	line, err := event.ToJSONLine(envs[0])
	require.NoError(t, err)

	out, err := run(t, line+"\n", "check-log", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "events: 1\n")
	assert.NotContains(t, out, "unfinished")
}

func TestCheckLog_Errors(t *testing.T) {
	_, err := run(t, "", "check-log")
	assert.ErrorContains(t, err, "exactly one FILE")

	path := writeLog(t, testutil.NewLogBuilder("s1").
		ToolCall("c1", "search", event.StatusCompleted).
		ToolCall("c1", "search", event.StatusExecuting).
		Build())
	_, err = run(t, "", "check-log", path)
	var terr *event.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "c1", terr.CallID)

	_, err = run(t, "", "check-log", filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, os.ErrClosed }

func TestOutputErrors(t *testing.T) {
	path := writeLog(t, testutil.NewLogBuilder("s1").Message(core.User("hi")).Build())

	for _, args := range [][]string{{"ops"}, {"check-log", path}} {
		cmd := New()
		cmd.Reader = strings.NewReader("")
		cmd.Writer = brokenWriter{}
		cmd.ErrWriter = &bytes.Buffer{}
		err := cmd.Run(context.Background(), append([]string{"umf", "--log-level", "error"}, args...))
		assert.ErrorIs(t, err, os.ErrClosed, args[0])
	}
}

func TestServe_BadLogLevel(t *testing.T) {
	var out bytes.Buffer
	cmd := New()
	cmd.Reader = strings.NewReader("")
	cmd.Writer = &out
	cmd.ErrWriter = &out
	err := cmd.Run(context.Background(), []string{"umf", "--log-level", "loud", "serve"})
	assert.ErrorContains(t, err, "unknown log level")
}
