package core

import (
	"bytes"
	"encoding/json"
	"maps"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// String returns the wire representation of the role.
func (r Role) String() string { return string(r) }

// ParseRole converts a wire string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", NewUnknownDiscriminatorError("role", s)
	}
	return r, nil
}

// UnmarshalJSON rejects roles outside the closed set.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return NewInvalidTypeError("role", errNotString)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Content is message content: either Text or Blocks. Both variants serialize
// directly as the value of "content" without any wrapper key.
type Content interface{ isContent() }

// Text is plain string content.
type Text string

func (Text) isContent() {}

// Message is a single conversational turn in the provider-agnostic format.
// Values are treated as immutable once constructed; the With* helpers return
// modified copies.
//
// ToolCallID and Name are only populated for RoleTool messages.
type Message struct {
	Role       Role
	Content    Content
	Metadata   map[string]string
	ToolCallID *string
	Name       *string
}

// System creates a system message.
func System(text string) Message { return newTextMessage(RoleSystem, text) }

// User creates a user message.
func User(text string) Message { return newTextMessage(RoleUser, text) }

// Assistant creates an assistant message.
func Assistant(text string) Message { return newTextMessage(RoleAssistant, text) }

// AssistantWithTools creates an assistant message whose content is a text
// block followed by the given blocks (typically tool_use blocks).
func AssistantWithTools(text string, blocks ...Block) Message {
	content := make(Blocks, 0, len(blocks)+1)
	content = append(content, NewTextBlock(text))
	content = append(content, blocks...)
	return Message{
		Role:     RoleAssistant,
		Content:  content,
		Metadata: map[string]string{},
	}
}

// ToolResult creates a tool-role message carrying the string result for callID.
func ToolResult(callID, name, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    Text(content),
		Metadata:   map[string]string{},
		ToolCallID: ptr(callID),
		Name:       ptr(name),
	}
}

func newTextMessage(role Role, text string) Message {
	return Message{
		Role:     role,
		Content:  Text(text),
		Metadata: map[string]string{},
	}
}

// Text returns the content if it is plain text.
func (m Message) Text() (string, bool) {
	t, ok := m.Content.(Text)
	return string(t), ok
}

// Blocks returns the content if it is block based.
func (m Message) Blocks() (Blocks, bool) {
	b, ok := m.Content.(Blocks)
	return b, ok
}

// ToText extracts all textual content. Text content is returned as is; for
// block content the text and tool_result blocks are joined by newlines.
func (m Message) ToText() string {
	switch c := m.Content.(type) {
	case Text:
		return string(c)
	case Blocks:
		parts := make([]string, 0, len(c))
		for _, b := range c {
			switch blk := b.(type) {
			case TextBlock:
				parts = append(parts, blk.Text)
			case ToolResultBlock:
				parts = append(parts, blk.Content)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// ToolUses returns the tool_use blocks in their original order.
func (m Message) ToolUses() []ToolUseBlock {
	blocks, ok := m.Blocks()
	if !ok {
		return nil
	}
	var uses []ToolUseBlock
	for _, b := range blocks {
		if tu, ok := b.(ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	out := m
	out.Metadata = maps.Clone(m.Metadata)
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	if m.ToolCallID != nil {
		out.ToolCallID = ptr(*m.ToolCallID)
	}
	if m.Name != nil {
		out.Name = ptr(*m.Name)
	}
	if blocks, ok := m.Content.(Blocks); ok {
		out.Content = append(Blocks{}, blocks...)
	}
	return out
}

// Normalize returns a copy of m in the shape ParseMessage yields for its
// encoding: metadata is non-nil and tool_use inputs are in decoded JSON form.
func (m Message) Normalize() Message {
	out := m.Clone()
	if blocks, ok := out.Content.(Blocks); ok {
		for i, b := range blocks {
			if tu, ok := b.(ToolUseBlock); ok {
				blocks[i] = NewToolUseBlock(tu.ID, tu.Name, tu.Input)
			}
		}
	}
	return out
}

// WithMetadata returns a copy of m with key set to value.
func (m Message) WithMetadata(key, value string) Message {
	out := m.Clone()
	out.Metadata[key] = value
	return out
}

// Validate enforces the role/field invariants: a known role, non-nil
// content, and tool_call_id/name present only on tool messages. Tool messages
// must carry a tool_call_id and plain text content.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return &ValidationError{Field: "role", Value: string(m.Role), Message: "unknown role"}
	}
	if m.Content == nil {
		return &ValidationError{Field: "content", Message: "content is required"}
	}

	if m.Role != RoleTool {
		if m.ToolCallID != nil {
			return &ValidationError{Field: "tool_call_id", Value: *m.ToolCallID, Message: "only tool messages may carry tool_call_id"}
		}
		if m.Name != nil {
			return &ValidationError{Field: "name", Value: *m.Name, Message: "only tool messages may carry name"}
		}
		return nil
	}

	if m.ToolCallID == nil || *m.ToolCallID == "" {
		return &ValidationError{Field: "tool_call_id", Message: "tool messages require tool_call_id"}
	}
	if _, ok := m.Content.(Text); !ok {
		return &ValidationError{Field: "content", Message: "tool messages carry string content"}
	}
	return nil
}

type wireMessage struct {
	Role       Role              `json:"role"`
	Content    Content           `json:"content"`
	Metadata   map[string]string `json:"metadata"`
	ToolCallID *string           `json:"tool_call_id"`
	Name       *string           `json:"name"`
}

// MarshalJSON emits the exact InternalMessage wire shape: metadata is always
// an object and tool_call_id / name are always present (null when unset).
func (m Message) MarshalJSON() ([]byte, error) {
	if !m.Role.Valid() {
		return nil, &ValidationError{Field: "role", Value: string(m.Role), Message: "unknown role"}
	}
	if m.Content == nil {
		return nil, &ValidationError{Field: "content", Message: "content is required"}
	}
	metadata := m.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return json.Marshal(wireMessage{
		Role:       m.Role,
		Content:    m.Content,
		Metadata:   metadata,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	})
}

// UnmarshalJSON decodes the InternalMessage wire shape. Missing role or
// content, unknown discriminators and wrong types fail with *ParseError.
func (m *Message) UnmarshalJSON(data []byte) error {
	msg, err := parseMessage("", data)
	if err != nil {
		return err
	}
	*m = msg
	return nil
}

// ParseMessage decodes a message from JSON. It does not run Validate.
func ParseMessage(data []byte) (Message, error) {
	return parseMessage("", data)
}

func parseMessage(path string, data []byte) (Message, error) {
	if err := expectObject(path, data); err != nil {
		return Message{}, err
	}

	var raw struct {
		Role       json.RawMessage   `json:"role"`
		Content    json.RawMessage   `json:"content"`
		Metadata   map[string]string `json:"metadata"`
		ToolCallID *string           `json:"tool_call_id"`
		Name       *string           `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, WrapDecodeError(path, err)
	}

	if isAbsent(raw.Role) {
		return Message{}, NewMissingFieldError(joinField(path, "role"))
	}
	var role Role
	if err := json.Unmarshal(raw.Role, &role); err != nil {
		return Message{}, prefixField(path, err)
	}

	if isAbsent(raw.Content) {
		return Message{}, NewMissingFieldError(joinField(path, "content"))
	}
	content, err := parseContent(joinField(path, "content"), raw.Content)
	if err != nil {
		return Message{}, err
	}

	metadata := raw.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	return Message{
		Role:       role,
		Content:    content,
		Metadata:   metadata,
		ToolCallID: raw.ToolCallID,
		Name:       raw.Name,
	}, nil
}

// ParseContent decodes message content: a JSON string yields Text, a JSON
// array yields Blocks, anything else is an invalid type.
func ParseContent(data []byte) (Content, error) {
	return parseContent("content", data)
}

func parseContent(path string, data []byte) (Content, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, NewMissingFieldError(path)
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, WrapDecodeError(path, err)
		}
		return Text(s), nil
	case '[':
		return parseBlocks(path, trimmed)
	default:
		return nil, NewInvalidTypeError(path, errStringOrArray)
	}
}

func prefixField(path string, err error) error {
	if pe, ok := err.(*ParseError); ok && path != "" {
		cp := *pe
		cp.Field = joinField(path, pe.Field)
		return &cp
	}
	return err
}
