package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/hupe1980/umf/core"
)

// ErrUnknownEventType matches decode failures caused by an event_type outside
// the closed set.
var ErrUnknownEventType = core.ErrUnknownEventType

var errLineBreak = errors.New("encoded envelope contains a line break")

// decoders is the static dispatch table for the second decode phase.
var decoders = map[Type]func(data []byte) (Event, error){
	TypeMessage:      decodeMessageEvent,
	TypeToolCall:     decodeToolCallEvent,
	TypeToolResult:   decodeToolResultEvent,
	TypeSystemSignal: decodeSystemSignalEvent,
	TypeError:        decodeErrorEvent,
}

// ToJSONLine encodes env as a single line of JSON without a trailing newline.
// The sequence is written as given; assigning it is the log writer's job.
func ToJSONLine(env Envelope) (string, error) {
	line, err := encode(env)
	if err != nil {
		return "", err
	}
	return string(line), nil
}

// FromJSONLine decodes one log line. The event_type discriminator is read
// first and selects the variant decoder; an unknown value fails with a
// *core.ParseError matching ErrUnknownEventType.
func FromJSONLine(line string) (Envelope, error) {
	return decode([]byte(line))
}

func encode(env Envelope) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(env.Event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", env.EventType, err)
	}

	line, err := sjson.SetBytes([]byte(`{}`), "event_type", string(env.EventType))
	if err != nil {
		return nil, fmt.Errorf("failed to encode event_type: %w", err)
	}

	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		line, err = sjson.SetRawBytes(line, key.String(), []byte(value.Raw))
		return err == nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to flatten %s event: %w", env.EventType, err)
	}

	if bytes.ContainsAny(line, "\r\n") {
		return nil, errLineBreak
	}
	return line, nil
}

func decode(data []byte) (Envelope, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Envelope{}, &core.ParseError{Kind: core.ParseMalformedJSON, Err: errors.New("empty line")}
	}
	if !gjson.ValidBytes(data) {
		return Envelope{}, &core.ParseError{Kind: core.ParseMalformedJSON, Err: errors.New("invalid JSON")}
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Envelope{}, core.NewInvalidTypeError("", errors.New("expected a JSON object"))
	}

	et := root.Get("event_type")
	switch {
	case !et.Exists() || et.Type == gjson.Null:
		return Envelope{}, core.NewMissingFieldError("event_type")
	case et.Type != gjson.String:
		return Envelope{}, core.NewInvalidTypeError("event_type", fmt.Errorf("expected a JSON string, got %s", et.Type))
	}

	decodeFn, ok := decoders[Type(et.Str)]
	if !ok {
		return Envelope{}, &core.ParseError{Kind: core.ParseUnknownEventType, Field: "event_type", Value: et.Str}
	}

	ev, err := decodeFn(data)
	if err != nil {
		return Envelope{}, err
	}
	return Wrap(ev), nil
}

type rawHeader struct {
	ID          *string         `json:"event_id"`
	SessionID   *string         `json:"session_id"`
	ProjectHash *string         `json:"project_hash"`
	Timestamp   json.RawMessage `json:"timestamp"`
	Sequence    *uint64         `json:"sequence"`
}

func (r rawHeader) header() (Header, error) {
	if r.ID == nil {
		return Header{}, core.NewMissingFieldError("event_id")
	}
	if r.SessionID == nil {
		return Header{}, core.NewMissingFieldError("session_id")
	}
	if r.Sequence == nil {
		return Header{}, core.NewMissingFieldError("sequence")
	}
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return Header{}, err
	}

	h := Header{
		ID:        *r.ID,
		SessionID: *r.SessionID,
		Timestamp: ts,
		Sequence:  *r.Sequence,
	}
	if r.ProjectHash != nil {
		h.ProjectHash = *r.ProjectHash
	}
	return h, nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	res := gjson.ParseBytes(raw)
	if !res.Exists() || res.Type == gjson.Null {
		return time.Time{}, core.NewMissingFieldError("timestamp")
	}
	if res.Type != gjson.String {
		return time.Time{}, core.NewInvalidTypeError("timestamp", errors.New("expected an RFC 3339 string"))
	}
	ts, err := time.Parse(time.RFC3339Nano, res.Str)
	if err != nil {
		return time.Time{}, core.NewInvalidTypeError("timestamp", err)
	}
	return ts.UTC(), nil
}

func decodeMessageEvent(data []byte) (Event, error) {
	var raw struct {
		rawHeader
		Message    json.RawMessage `json:"message"`
		TokenCount *int            `json:"token_count"`
		ModelInfo  *struct {
			ModelName *string `json:"model_name"`
			Provider  string  `json:"provider"`
		} `json:"model_info"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, core.WrapDecodeError("", err)
	}

	h, err := raw.header()
	if err != nil {
		return nil, err
	}

	if isNull(raw.Message) {
		return nil, core.NewMissingFieldError("message")
	}
	msg, err := core.ParseMessage(raw.Message)
	if err != nil {
		return nil, withField("message", err)
	}

	e := MessageEvent{Header: h, Message: msg, TokenCount: raw.TokenCount}
	if raw.ModelInfo != nil {
		if raw.ModelInfo.ModelName == nil {
			return nil, core.NewMissingFieldError("model_info.model_name")
		}
		e.ModelInfo = &ModelInfo{ModelName: *raw.ModelInfo.ModelName, Provider: raw.ModelInfo.Provider}
	}
	return e, nil
}

func decodeToolCallEvent(data []byte) (Event, error) {
	var raw struct {
		rawHeader
		MessageEventID *string `json:"message_event_id"`
		ToolCall       *struct {
			ID        *string         `json:"id"`
			Name      *string         `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"tool_call"`
		Status     *Status `json:"status"`
		MCPContext *struct {
			ServerName *string `json:"server_name"`
			ServerURL  string  `json:"server_url"`
			Transport  string  `json:"transport"`
		} `json:"mcp_context"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, core.WrapDecodeError("", err)
	}

	h, err := raw.header()
	if err != nil {
		return nil, err
	}

	switch {
	case raw.MessageEventID == nil:
		return nil, core.NewMissingFieldError("message_event_id")
	case raw.ToolCall == nil:
		return nil, core.NewMissingFieldError("tool_call")
	case raw.ToolCall.ID == nil:
		return nil, core.NewMissingFieldError("tool_call.id")
	case raw.ToolCall.Name == nil:
		return nil, core.NewMissingFieldError("tool_call.name")
	case raw.Status == nil:
		return nil, core.NewMissingFieldError("status")
	}

	args, err := decodeObject("tool_call.arguments", raw.ToolCall.Arguments)
	if err != nil {
		return nil, err
	}

	e := ToolCallEvent{
		Header:         h,
		MessageEventID: *raw.MessageEventID,
		ToolCall:       ToolCall{ID: *raw.ToolCall.ID, Name: *raw.ToolCall.Name, Arguments: args},
		Status:         *raw.Status,
	}
	if raw.MCPContext != nil {
		if raw.MCPContext.ServerName == nil {
			return nil, core.NewMissingFieldError("mcp_context.server_name")
		}
		e.MCPContext = &MCPContext{
			ServerName: *raw.MCPContext.ServerName,
			ServerURL:  raw.MCPContext.ServerURL,
			Transport:  raw.MCPContext.Transport,
		}
	}
	return e, nil
}

func decodeToolResultEvent(data []byte) (Event, error) {
	var raw struct {
		rawHeader
		ToolCallEventID *string `json:"tool_call_event_id"`
		Result          *struct {
			ToolCallID *string         `json:"tool_call_id"`
			Content    json.RawMessage `json:"content"`
			IsError    *bool           `json:"is_error"`
		} `json:"result"`
		DurationMS *uint64 `json:"duration_ms"`
		Error      *string `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, core.WrapDecodeError("", err)
	}

	h, err := raw.header()
	if err != nil {
		return nil, err
	}

	switch {
	case raw.ToolCallEventID == nil:
		return nil, core.NewMissingFieldError("tool_call_event_id")
	case raw.Result == nil:
		return nil, core.NewMissingFieldError("result")
	case raw.Result.ToolCallID == nil:
		return nil, core.NewMissingFieldError("result.tool_call_id")
	case raw.Result.Content == nil:
		return nil, core.NewMissingFieldError("result.content")
	case raw.Result.IsError == nil:
		return nil, core.NewMissingFieldError("result.is_error")
	}

	var content any
	if err := json.Unmarshal(raw.Result.Content, &content); err != nil {
		return nil, core.WrapDecodeError("result.content", err)
	}

	e := ToolResultEvent{
		Header:          h,
		ToolCallEventID: *raw.ToolCallEventID,
		Result: ToolResult{
			ToolCallID: *raw.Result.ToolCallID,
			Content:    content,
			IsError:    *raw.Result.IsError,
		},
		DurationMS: raw.DurationMS,
	}
	if raw.Error != nil {
		e.Error = *raw.Error
	}
	return e, nil
}

func decodeSystemSignalEvent(data []byte) (Event, error) {
	var raw struct {
		rawHeader
		Signal *string            `json:"signal"`
		Detail map[string]string `json:"detail"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, core.WrapDecodeError("", err)
	}

	h, err := raw.header()
	if err != nil {
		return nil, err
	}
	if raw.Signal == nil {
		return nil, core.NewMissingFieldError("signal")
	}

	var detail map[string]string
	if len(raw.Detail) > 0 {
		detail = raw.Detail
	}
	return SystemSignalEvent{Header: h, Signal: *raw.Signal, Detail: detail}, nil
}

func decodeErrorEvent(data []byte) (Event, error) {
	var raw struct {
		rawHeader
		Kind       *string `json:"kind"`
		Message    *string `json:"message"`
		ToolCallID *string `json:"tool_call_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, core.WrapDecodeError("", err)
	}

	h, err := raw.header()
	if err != nil {
		return nil, err
	}

	switch {
	case raw.Kind == nil:
		return nil, core.NewMissingFieldError("kind")
	case raw.Message == nil:
		return nil, core.NewMissingFieldError("message")
	}

	e := ErrorEvent{Header: h, Kind: *raw.Kind, Message: *raw.Message}
	if raw.ToolCallID != nil {
		e.ToolCallID = *raw.ToolCallID
	}
	return e, nil
}

func decodeObject(field string, raw json.RawMessage) (map[string]any, error) {
	if isNull(raw) {
		return nil, core.NewMissingFieldError(field)
	}
	if !gjson.ParseBytes(raw).IsObject() {
		return nil, core.NewInvalidTypeError(field, errors.New("expected a JSON object"))
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, core.WrapDecodeError(field, err)
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// withField prefixes the field path of a nested *core.ParseError.
func withField(prefix string, err error) error {
	var pe *core.ParseError
	if !errors.As(err, &pe) {
		return err
	}
	cp := *pe
	if cp.Field == "" {
		cp.Field = prefix
	} else {
		cp.Field = prefix + "." + cp.Field
	}
	return &cp
}
