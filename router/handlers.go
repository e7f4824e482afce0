package router

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/hupe1980/umf/chatml"
	"github.com/hupe1980/umf/core"
	"github.com/hupe1980/umf/tokens"
)

type textPayload struct {
	Text string `json:"text"`
}

func (r *Router) createSystemMessage(payload json.RawMessage) (any, error) {
	var p textPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	return core.System(p.Text), nil
}

func (r *Router) createUserMessage(payload json.RawMessage) (any, error) {
	var p textPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	return core.User(p.Text), nil
}

func (r *Router) createAssistantMessage(payload json.RawMessage) (any, error) {
	var p textPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	return core.Assistant(p.Text), nil
}

func (r *Router) createAssistantWithTools(payload json.RawMessage) (any, error) {
	var p struct {
		Text      string            `json:"text"`
		ToolCalls []json.RawMessage `json:"tool_calls"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}

	blocks := make([]core.Block, 0, len(p.ToolCalls))
	for i, raw := range p.ToolCalls {
		b, err := core.ParseBlock(raw)
		if err != nil {
			return nil, withField("tool_calls["+strconv.Itoa(i)+"]", err)
		}
		blocks = append(blocks, b)
	}
	return core.AssistantWithTools(p.Text, blocks...), nil
}

func (r *Router) createToolResultMessage(payload json.RawMessage) (any, error) {
	var p struct {
		ToolCallID string `json:"tool_call_id"`
		Name       string `json:"name"`
		Content    string `json:"content"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	msg := core.ToolResult(p.ToolCallID, p.Name, p.Content)
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *Router) toChatML(payload json.RawMessage) (any, error) {
	msg, err := parseInternal(payload)
	if err != nil {
		return nil, err
	}
	return chatml.Convert(msg)
}

func (r *Router) fromChatML(payload json.RawMessage) (any, error) {
	msg, err := chatml.Parse(payload)
	if err != nil {
		return nil, err
	}
	return msg.ToInternal(), nil
}

func (r *Router) extractTextContent(payload json.RawMessage) (any, error) {
	msg, err := parseInternal(payload)
	if err != nil {
		return nil, err
	}
	return msg.ToText(), nil
}

func (r *Router) countTokens(payload json.RawMessage) (any, error) {
	var p struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}

	if isAbsent(p.Content) {
		return nil, core.NewMissingFieldError("content")
	}
	content, err := core.ParseContent(p.Content)
	if err != nil {
		return nil, err
	}
	role := core.RoleUser
	if p.Role != "" {
		if role, err = core.ParseRole(p.Role); err != nil {
			return nil, err
		}
	}

	text := core.Message{Role: role, Content: content}.ToText()
	return tokens.ChatMLCounter(r.counter)(string(role), text)
}

// parseInternal strictly decodes and validates a UMF message payload.
func parseInternal(payload json.RawMessage) (core.Message, error) {
	msg, err := core.ParseMessage(payload)
	if err != nil {
		return core.Message{}, err
	}
	if err := msg.Validate(); err != nil {
		return core.Message{}, err
	}
	return msg, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodePayload(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return core.WrapDecodeError("", err)
	}
	return nil
}

// withField prefixes the field path of a parse error.
func withField(prefix string, err error) error {
	pe, ok := err.(*core.ParseError)
	if !ok {
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
