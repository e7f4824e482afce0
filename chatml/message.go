package chatml

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/umf/core"
)

const (
	imStart = "<|im_start|>"
	imEnd   = "<|im_end|>"
)

// Message is a flat, string-content chat message in ChatML / OpenAI chat
// shape. Name and ToolCallID are omitted on the wire when empty.
type Message struct {
	Role       core.Role       `json:"role"`
	Content    string          `json:"content"`
	Name       string          `json:"name,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolCalls  []core.ToolCall `json:"tool_calls,omitempty"`
}

// NewMessage creates a plain message with an optional sender name.
func NewMessage(role core.Role, content, name string) Message {
	return Message{Role: role, Content: content, Name: name}
}

// NewToolMessage creates a tool message answering callID.
func NewToolMessage(content, callID, name string) Message {
	return Message{Role: core.RoleTool, Content: content, Name: name, ToolCallID: callID}
}

// NewAssistantWithToolCalls creates an assistant message carrying tool calls.
// Content may be empty for tool-only responses.
func NewAssistantWithToolCalls(content string, calls []core.ToolCall) Message {
	return Message{Role: core.RoleAssistant, Content: content, ToolCalls: calls}
}

// String renders the message as a ChatML segment:
//
//	<|im_start|>role name=x
//	content
//	<|im_end|>
func (m Message) String() string {
	var sb strings.Builder
	sb.WriteString(imStart)
	sb.WriteString(string(m.Role))
	if m.Name != "" {
		sb.WriteString(" name=")
		sb.WriteString(m.Name)
	}
	sb.WriteByte('\n')
	sb.WriteString(m.Content)
	sb.WriteByte('\n')
	sb.WriteString(imEnd)
	return sb.String()
}

// OpenAIFormat returns the message as a generic map in OpenAI chat shape.
func (m Message) OpenAIFormat() map[string]any {
	out := map[string]any{
		"role":    string(m.Role),
		"content": m.Content,
	}
	if m.Name != "" {
		out["name"] = m.Name
	}
	if m.ToolCallID != "" {
		out["tool_call_id"] = m.ToolCallID
	}
	if m.ToolCalls != nil {
		calls := make([]any, 0, len(m.ToolCalls))
		for _, c := range m.ToolCalls {
			calls = append(calls, map[string]any{
				"id":   c.ID,
				"type": c.Type,
				"function": map[string]any{
					"name":      c.Function.Name,
					"arguments": c.Function.Arguments,
				},
			})
		}
		out["tool_calls"] = calls
	}
	return out
}

// FromInternal converts a UMF message. Tool messages keep only their text
// blocks. For other roles text blocks are joined by newlines and tool_use
// blocks become tool calls with JSON encoded arguments; all remaining block
// types are dropped. A tool_use input that cannot be JSON encoded yields
// arguments "{}"; use Convert to get the error instead.
func FromInternal(msg core.Message) Message {
	out, _ := convert(msg, func(b core.ToolUseBlock) (core.ToolCall, error) {
		call, err := b.ToolCall()
		if err != nil {
			return core.ToolCall{ID: b.ID, Type: core.FunctionType, Function: core.FunctionCall{Name: b.Name, Arguments: "{}"}}, nil
		}
		return call, nil
	})
	return out
}

// Convert is FromInternal failing on the first tool_use block whose input
// cannot be JSON encoded.
func Convert(msg core.Message) (Message, error) {
	return convert(msg, func(b core.ToolUseBlock) (core.ToolCall, error) {
		call, err := b.ToolCall()
		if err != nil {
			return core.ToolCall{}, fmt.Errorf("tool call %q: %w", b.ID, err)
		}
		return call, nil
	})
}

func convert(msg core.Message, toolCall func(core.ToolUseBlock) (core.ToolCall, error)) (Message, error) {
	out := Message{Role: msg.Role}
	if msg.Name != nil {
		out.Name = *msg.Name
	}
	if msg.ToolCallID != nil {
		out.ToolCallID = *msg.ToolCallID
	}

	blocks, isBlocks := msg.Blocks()
	if !isBlocks {
		out.Content, _ = msg.Text()
		return out, nil
	}

	var (
		texts []string
		calls []core.ToolCall
	)
	for _, b := range blocks {
		switch blk := b.(type) {
		case core.TextBlock:
			texts = append(texts, blk.Text)
		case core.ToolUseBlock:
			if msg.Role == core.RoleTool {
				continue
			}
			call, err := toolCall(blk)
			if err != nil {
				return Message{}, err
			}
			calls = append(calls, call)
		}
	}

	out.Content = strings.Join(texts, "\n")
	if len(calls) > 0 {
		out.ToolCalls = calls
	}
	return out, nil
}

// ToInternal converts the message into UMF. A tool call id always yields a
// tool message; tool calls yield block content with the text block first (if
// any) followed by one tool_use block per call. Arguments that are not a JSON
// object decode to an empty input.
func (m Message) ToInternal() core.Message {
	if m.ToolCallID != "" {
		msg := core.ToolResult(m.ToolCallID, m.Name, m.Content)
		if m.Name == "" {
			msg.Name = nil
		}
		return msg
	}

	if m.ToolCalls != nil {
		var blocks core.Blocks
		if m.Content != "" {
			blocks = append(blocks, core.NewTextBlock(m.Content))
		}
		for _, c := range m.ToolCalls {
			args, err := c.ParsedArguments()
			if err != nil {
				args = nil
			}
			blocks = append(blocks, core.NewToolUseBlock(c.ID, c.Function.Name, args))
		}
		if blocks == nil {
			blocks = core.Blocks{}
		}
		return core.Message{Role: m.Role, Content: blocks, Metadata: map[string]string{}}
	}

	return core.Message{Role: m.Role, Content: core.Text(m.Content), Metadata: map[string]string{}}
}

// Parse decodes a ChatML message. Role and content are required; failures
// are reported as *core.ParseError.
func Parse(data []byte) (Message, error) {
	var raw struct {
		Role       json.RawMessage `json:"role"`
		Content    *string         `json:"content"`
		Name       *string         `json:"name"`
		ToolCallID *string         `json:"tool_call_id"`
		ToolCalls  []core.ToolCall `json:"tool_calls"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, core.WrapDecodeError("", err)
	}

	if len(raw.Role) == 0 || string(raw.Role) == "null" {
		return Message{}, core.NewMissingFieldError("role")
	}
	var role core.Role
	if err := json.Unmarshal(raw.Role, &role); err != nil {
		return Message{}, err
	}
	if raw.Content == nil {
		return Message{}, core.NewMissingFieldError("content")
	}

	msg := Message{Role: role, Content: *raw.Content, ToolCalls: raw.ToolCalls}
	if raw.Name != nil {
		msg.Name = *raw.Name
	}
	if raw.ToolCallID != nil {
		msg.ToolCallID = *raw.ToolCallID
	}
	return msg, nil
}

// UnmarshalJSON decodes via Parse.
func (m *Message) UnmarshalJSON(data []byte) error {
	msg, err := Parse(data)
	if err != nil {
		return err
	}
	*m = msg
	return nil
}
