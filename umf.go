// Package umf provides a high-level façade over the universal message format:
// the operation router and an append-only event log sharing one logger and
// token counter. Most applications interact with this package by:
//  1. Creating a UMF via New() (optionally overriding the in-memory store)
//  2. Dispatching operations (Dispatch, Handle or HandleJSON)
//  3. Recording conversation messages and tool activity into the log
//
// The lower-level packages (core, event, eventlog, router, chatml, stream)
// remain usable on their own; the façade only wires them together.
package umf

import (
	"fmt"

	"github.com/hupe1980/umf/core"
	"github.com/hupe1980/umf/event"
	"github.com/hupe1980/umf/eventlog"
	"github.com/hupe1980/umf/logging"
	"github.com/hupe1980/umf/router"
	"github.com/hupe1980/umf/tokens"
)

// Options configures the UMF instance.
type Options struct {
	// Store receives recorded events (defaults to an in-memory store).
	Store eventlog.Store

	// TokenCounter is used by count-tokens and when recording messages.
	// Defaults to tokens.Approximate.
	TokenCounter tokens.Counter

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// UMF aggregates the router and the event log.
type UMF struct {
	opts   Options
	router *router.Router
	count  func(role, content string) (int, error)
}

// New creates a new UMF instance. Any unset dependency is initialised with
// its default.
func New(optFns ...func(o *Options)) *UMF {
	opts := Options{
		TokenCounter: tokens.Approximate,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.TokenCounter == nil {
		opts.TokenCounter = tokens.Approximate
	}
	if opts.Store == nil {
		opts.Store = eventlog.NewInMemoryStore(func(o *eventlog.Options) {
			o.Logger = opts.Logger
		})
	}

	r := router.New(func(o *router.Options) {
		o.Logger = opts.Logger
		o.TokenCounter = opts.TokenCounter
	})

	return &UMF{
		opts:   opts,
		router: r,
		count:  tokens.ChatMLCounter(opts.TokenCounter),
	}
}

// Router returns the underlying operation router.
func (u *UMF) Router() *router.Router { return u.router }

// Store returns the event log.
func (u *UMF) Store() eventlog.Store { return u.opts.Store }

// Dispatch runs a router operation.
func (u *UMF) Dispatch(req router.Request) (any, error) { return u.router.Dispatch(req) }

// Handle runs a router operation and wraps the outcome in a Response.
func (u *UMF) Handle(req router.Request) router.Response { return u.router.Handle(req) }

// HandleJSON decodes a request, dispatches it and encodes the response.
func (u *UMF) HandleJSON(data []byte) ([]byte, error) { return u.router.HandleJSON(data) }

// Record appends an arbitrary event to the log.
func (u *UMF) Record(e event.Event) (event.Envelope, error) {
	return u.opts.Store.Append(e)
}

// RecordMessage validates msg and appends it as a message event carrying its
// token count. Every tool_use block of the message is then appended as a
// pending tool_call event referring to the message event. The message
// envelope comes first in the returned slice.
func (u *UMF) RecordMessage(sessionID string, msg core.Message) ([]event.Envelope, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	n, err := u.count(string(msg.Role), msg.ToText())
	if err != nil {
		return nil, fmt.Errorf("failed to count tokens: %w", err)
	}

	msgEnv, err := u.opts.Store.Append(event.NewMessageEvent(sessionID, msg).WithTokenCount(n))
	if err != nil {
		return nil, err
	}

	out := []event.Envelope{msgEnv}
	for _, use := range msg.ToolUses() {
		callEnv, err := u.opts.Store.Append(event.NewToolCallEvent(sessionID, msgEnv.Header().ID, event.ToolCallFromBlock(use)))
		if err != nil {
			return out, fmt.Errorf("failed to record tool call %s: %w", use.ID, err)
		}
		out = append(out, callEnv)
	}
	return out, nil
}

// Conversation returns the messages recorded for sessionID in log order.
func (u *UMF) Conversation(sessionID string) ([]core.Message, error) {
	envs, err := u.opts.Store.ReadAll()
	if err != nil {
		return nil, err
	}

	var msgs []core.Message
	for _, env := range envs {
		if env.Header().SessionID != sessionID {
			continue
		}
		if m, ok := env.AsMessage(); ok {
			msgs = append(msgs, m.Message)
		}
	}
	return msgs, nil
}
