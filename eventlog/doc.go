// Package eventlog provides the stateful side of the append-only event log:
// sequence assignment, status policy enforcement and JSON-lines I/O.
//
// The codec in package event is pure and records whatever sequence it is
// given. Writer and InMemoryStore own the counter instead: every Append
// re-stamps the event with the next strictly increasing sequence and, unless
// disabled via Options.EnforceTransitions, rejects a tool_call status that may
// not follow the call's previous status. Rejected events are never written.
//
//	var buf bytes.Buffer
//	w := eventlog.NewWriter(&buf)
//	env, err := w.Append(event.NewMessageEvent("sess-1", core.User("hi")))
//
// ReadAll and Iterate read a log back, rejecting blank lines and sequence
// regressions with a *LineError that carries the 1-based line number.
package eventlog
