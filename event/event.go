package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/umf/core"
)

// Event is one immutable entry of a conversation log. The concrete variants
// are MessageEvent, ToolCallEvent, ToolResultEvent, SystemSignalEvent and
// ErrorEvent; use a type switch or the Envelope.As* helpers to branch.
type Event interface {
	// EventType returns the discriminator recorded on the wire.
	EventType() Type
	// EventHeader returns the fields shared by every variant.
	EventHeader() Header
	// WithSequence returns a copy of the event carrying seq.
	WithSequence(seq uint64) Event
	normalized() Event
	isEvent()
}

// Header carries identity and ordering data common to every event. Sequence
// is assigned by the log writer; constructors leave it at zero.
type Header struct {
	ID          string    `json:"event_id"`
	SessionID   string    `json:"session_id"`
	ProjectHash string    `json:"project_hash,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Sequence    uint64    `json:"sequence"`
}

// EventHeader returns h.
func (h Header) EventHeader() Header { return h }

// NewHeader creates a header with a fresh id and the current UTC time at
// millisecond precision.
func NewHeader(sessionID string) Header {
	return Header{
		ID:        NewID(),
		SessionID: sessionID,
		Timestamp: Now(),
	}
}

// normalized strips the monotonic clock reading and location from the
// timestamp so the header equals its decoded form.
func (h Header) normalized() Header {
	h.Timestamp = h.Timestamp.UTC().Round(0)
	return h
}

// NewID returns a new unique event id.
func NewID() string { return "evt_" + uuid.NewString() }

// Now returns the current time truncated to the precision kept on the wire.
func Now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// ModelInfo identifies the model that produced a message.
type ModelInfo struct {
	ModelName string `json:"model_name"`
	Provider  string `json:"provider,omitempty"`
}

// MessageEvent records a conversational message.
type MessageEvent struct {
	Header
	Message    core.Message `json:"message"`
	TokenCount *int         `json:"token_count,omitempty"`
	ModelInfo  *ModelInfo   `json:"model_info,omitempty"`
}

// NewMessageEvent creates a message event for sessionID.
func NewMessageEvent(sessionID string, msg core.Message) MessageEvent {
	return MessageEvent{Header: NewHeader(sessionID), Message: msg}
}

func (MessageEvent) EventType() Type { return TypeMessage }
func (MessageEvent) isEvent()        {}

func (e MessageEvent) WithSequence(seq uint64) Event {
	e.Sequence = seq
	return e
}

func (e MessageEvent) normalized() Event {
	e.Header = e.Header.normalized()
	e.Message = e.Message.Normalize()
	return e
}

// WithTokenCount returns a copy recording the message's token count.
func (e MessageEvent) WithTokenCount(n int) MessageEvent {
	e.TokenCount = &n
	return e
}

// WithModel returns a copy recording the producing model.
func (e MessageEvent) WithModel(name, provider string) MessageEvent {
	e.ModelInfo = &ModelInfo{ModelName: name, Provider: provider}
	return e
}

// WithProjectHash returns a copy tagged with a project hash.
func (e MessageEvent) WithProjectHash(hash string) MessageEvent {
	e.ProjectHash = hash
	return e
}

// ToolCall is the invocation recorded by a ToolCallEvent. Unlike
// core.ToolCall the arguments are kept as a decoded object.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolCallFromBlock converts a tool_use content block.
func ToolCallFromBlock(b core.ToolUseBlock) ToolCall {
	return ToolCall{ID: b.ID, Name: b.Name, Arguments: normalizeArguments(b.Input)}
}

// normalizeArguments returns args in decoded JSON form, never nil.
func normalizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	return core.NormalizeJSON(args)
}

// ToolCallFromCore converts a wire tool call, decoding its JSON arguments.
func ToolCallFromCore(c core.ToolCall) (ToolCall, error) {
	args, err := c.ParsedArguments()
	if err != nil {
		return ToolCall{}, err
	}
	return ToolCall{ID: c.ID, Name: c.Function.Name, Arguments: args}, nil
}

// Core converts the call into its wire form with JSON encoded arguments.
func (c ToolCall) Core() (core.ToolCall, error) {
	return core.NewToolCall(c.ID, c.Name, c.Arguments)
}

// MCPContext identifies the MCP server a tool is served from.
type MCPContext struct {
	ServerName string `json:"server_name"`
	ServerURL  string `json:"server_url,omitempty"`
	Transport  string `json:"transport,omitempty"`
}

// ToolCallEvent records one status of a tool call. Every status change is a
// new ToolCallEvent for the same ToolCall.ID.
type ToolCallEvent struct {
	Header
	MessageEventID string      `json:"message_event_id"`
	ToolCall       ToolCall    `json:"tool_call"`
	Status         Status      `json:"status"`
	MCPContext     *MCPContext `json:"mcp_context,omitempty"`
}

// NewToolCallEvent creates a pending tool call event. messageEventID refers
// to the MessageEvent that requested the call.
func NewToolCallEvent(sessionID, messageEventID string, call ToolCall) ToolCallEvent {
	call.Arguments = normalizeArguments(call.Arguments)
	return ToolCallEvent{
		Header:         NewHeader(sessionID),
		MessageEventID: messageEventID,
		ToolCall:       call,
		Status:         StatusPending,
	}
}

func (ToolCallEvent) EventType() Type { return TypeToolCall }
func (ToolCallEvent) isEvent()        {}

func (e ToolCallEvent) WithSequence(seq uint64) Event {
	e.Sequence = seq
	return e
}

func (e ToolCallEvent) normalized() Event {
	e.Header = e.Header.normalized()
	e.ToolCall.Arguments = normalizeArguments(e.ToolCall.Arguments)
	return e
}

// WithMCPContext returns a copy recording the serving MCP server.
func (e ToolCallEvent) WithMCPContext(ctx MCPContext) ToolCallEvent {
	e.MCPContext = &ctx
	return e
}

// Transition returns a new event for the same call recording status to. It
// carries a fresh id and timestamp and no sequence. Illegal transitions
// fail with *TransitionError.
func (e ToolCallEvent) Transition(to Status) (ToolCallEvent, error) {
	if !e.Status.CanTransition(to) {
		return ToolCallEvent{}, &TransitionError{CallID: e.ToolCall.ID, From: e.Status, To: to}
	}
	next := e
	next.Header = NewHeader(e.SessionID)
	next.ProjectHash = e.ProjectHash
	next.Status = to
	return next, nil
}

// ToolResult is the outcome of a tool call. Content is any JSON value.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    any    `json:"content"`
	IsError    bool   `json:"is_error"`
}

// ToolResultEvent records the result of a tool call.
type ToolResultEvent struct {
	Header
	ToolCallEventID string     `json:"tool_call_event_id"`
	Result          ToolResult `json:"result"`
	DurationMS      *uint64    `json:"duration_ms,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// NewToolResultEvent creates a result event. toolCallEventID refers to the
// ToolCallEvent that was executed. The content is stored in decoded JSON form.
func NewToolResultEvent(sessionID, toolCallEventID string, result ToolResult) ToolResultEvent {
	result.Content = core.NormalizeJSON(result.Content)
	return ToolResultEvent{
		Header:          NewHeader(sessionID),
		ToolCallEventID: toolCallEventID,
		Result:          result,
	}
}

func (ToolResultEvent) EventType() Type { return TypeToolResult }
func (ToolResultEvent) isEvent()        {}

func (e ToolResultEvent) WithSequence(seq uint64) Event {
	e.Sequence = seq
	return e
}

func (e ToolResultEvent) normalized() Event {
	e.Header = e.Header.normalized()
	e.Result.Content = core.NormalizeJSON(e.Result.Content)
	return e
}

// WithDuration returns a copy recording the execution time in milliseconds.
func (e ToolResultEvent) WithDuration(d time.Duration) ToolResultEvent {
	ms := uint64(d.Milliseconds())
	e.DurationMS = &ms
	return e
}

// WithError returns a copy marked as failed with msg.
func (e ToolResultEvent) WithError(msg string) ToolResultEvent {
	e.Result.IsError = true
	e.Error = msg
	return e
}

// ToolMessage converts the result into a tool-role message. Non-string
// content is JSON encoded.
func (e ToolResultEvent) ToolMessage(name string) (core.Message, error) {
	content, err := resultText(e.Result.Content)
	if err != nil {
		return core.Message{}, err
	}
	return core.ToolResult(e.Result.ToolCallID, name, content), nil
}

// Well-known system signals.
const (
	SignalSessionStart = "session_start"
	SignalSessionEnd   = "session_end"
	SignalCompaction   = "compaction"
	SignalInterrupt    = "interrupt"
)

// SystemSignalEvent records a lifecycle signal of the session itself.
type SystemSignalEvent struct {
	Header
	Signal string            `json:"signal"`
	Detail map[string]string `json:"detail,omitempty"`
}

// NewSystemSignalEvent creates a signal event.
func NewSystemSignalEvent(sessionID, signal string, detail map[string]string) SystemSignalEvent {
	if len(detail) == 0 {
		detail = nil
	}
	return SystemSignalEvent{Header: NewHeader(sessionID), Signal: signal, Detail: detail}
}

func (SystemSignalEvent) EventType() Type { return TypeSystemSignal }
func (SystemSignalEvent) isEvent()        {}

func (e SystemSignalEvent) WithSequence(seq uint64) Event {
	e.Sequence = seq
	return e
}

func (e SystemSignalEvent) normalized() Event {
	e.Header = e.Header.normalized()
	if len(e.Detail) == 0 {
		e.Detail = nil
	}
	return e
}

// ErrorEvent records a failure observed while processing the session.
type ErrorEvent struct {
	Header
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// NewErrorEvent creates an error event.
func NewErrorEvent(sessionID, kind, message string) ErrorEvent {
	return ErrorEvent{Header: NewHeader(sessionID), Kind: kind, Message: message}
}

// NewErrorEventFromError creates an error event from err.
func NewErrorEventFromError(sessionID, kind string, err error) ErrorEvent {
	return NewErrorEvent(sessionID, kind, err.Error())
}

func (ErrorEvent) EventType() Type { return TypeError }
func (ErrorEvent) isEvent()        {}

func (e ErrorEvent) WithSequence(seq uint64) Event {
	e.Sequence = seq
	return e
}

func (e ErrorEvent) normalized() Event {
	e.Header = e.Header.normalized()
	return e
}

// ForToolCall returns a copy relating the error to a tool call id.
func (e ErrorEvent) ForToolCall(id string) ErrorEvent {
	e.ToolCallID = id
	return e
}
