package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_UserWireShape(t *testing.T) {
	msg := User("Hello, world!")

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"role":"user","content":"Hello, world!","metadata":{},"tool_call_id":null,"name":null}`, string(data))

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, msg, decoded)
}

func TestMessage_Constructors(t *testing.T) {
	toolUse := NewToolUseBlock("call_1", "search", map[string]any{"query": "go"})

	tests := []struct {
		name    string
		msg     Message
		role    Role
		wantErr bool
	}{
		{name: "system", msg: System("be brief"), role: RoleSystem},
		{name: "user", msg: User("hi"), role: RoleUser},
		{name: "assistant", msg: Assistant("hello"), role: RoleAssistant},
		{name: "assistant with tools", msg: AssistantWithTools("checking", toolUse), role: RoleAssistant},
		{name: "tool result", msg: ToolResult("call_1", "search", "found"), role: RoleTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.role, tt.msg.Role)
			assert.NotNil(t, tt.msg.Metadata)
			assert.NoError(t, tt.msg.Validate())
		})
	}
}

func TestMessage_AssistantWithToolsOrder(t *testing.T) {
	a := NewToolUseBlock("call_1", "search", nil)
	b := NewToolUseBlock("call_2", "fetch", map[string]any{"url": "https://example.com"})

	msg := AssistantWithTools("Let me look", a, b)

	blocks, ok := msg.Blocks()
	require.True(t, ok)
	require.Len(t, blocks, 3)
	assert.Equal(t, NewTextBlock("Let me look"), blocks[0])
	assert.Equal(t, []ToolUseBlock{a, b}, msg.ToolUses())
	assert.Equal(t, map[string]any{}, a.Input)
}

func TestMessage_ToolResultWireShape(t *testing.T) {
	data, err := json.Marshal(ToolResult("call_9", "weather", "sunny"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"tool","content":"sunny","metadata":{},"tool_call_id":"call_9","name":"weather"}`, string(data))
}

func TestMessage_RoundTrip(t *testing.T) {
	messages := []Message{
		System("You are helpful."),
		User("").WithMetadata("trace", "abc"),
		AssistantWithTools("", NewToolUseBlock("c1", "calc", map[string]any{"a": 1, "nested": map[string]any{"b": []any{"x", true, int64(7)}}})),
		ToolResult("c1", "calc", `{"sum":3}`),
		{
			Role: RoleUser,
			Content: Blocks{
				NewTextBlock("What is in this picture?"),
				NewBase64Image("image/png", "iVBORw0KGgo="),
				NewURLImage("https://example.com/cat.jpg"),
				NewToolResultBlock("c0", "earlier"),
			},
			Metadata: map[string]string{"source": "upload"},
		},
	}

	for _, msg := range messages {
		data, err := json.Marshal(msg)
		require.NoError(t, err)

		parsed, err := ParseMessage(data)
		require.NoError(t, err)
		assert.Equal(t, msg, parsed)
	}
}

func TestMessage_NormalizeLiteralToolUse(t *testing.T) {
	msg := Message{
		Role:    RoleAssistant,
		Content: Blocks{ToolUseBlock{ID: "c1", Name: "search", Input: map[string]any{"limit": 3, "tags": []string{"go"}}}},
	}

	norm := msg.Normalize()
	assert.Equal(t, map[string]any{"limit": 3.0, "tags": []any{"go"}}, norm.ToolUses()[0].Input)
	assert.Equal(t, map[string]string{}, norm.Metadata)
	assert.Equal(t, 3, msg.ToolUses()[0].Input["limit"], "original is untouched")

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	parsed, err := ParseMessage(data)
	require.NoError(t, err)
	assert.Equal(t, norm, parsed)
}

func TestNormalizeJSON(t *testing.T) {
	assert.Equal(t, map[string]any{"n": 1.0, "u": 2.0}, NormalizeJSON(map[string]any{"n": 1, "u": uint8(2)}))
	assert.Equal(t, any([]any{1.0, "x"}), NormalizeJSON(any([]any{1, "x"})))
	assert.Nil(t, NormalizeJSON[any](nil))

	unencodable := map[string]any{"ch": make(chan int)}
	assert.Equal(t, unencodable, NormalizeJSON(unencodable))
}

func TestMessage_EmptyBlocksRoundTrip(t *testing.T) {
	msg := Message{Role: RoleAssistant, Content: Blocks{}, Metadata: map[string]string{}}

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"content":[]`)

	parsed, err := ParseMessage(data)
	require.NoError(t, err)
	assert.Equal(t, msg, parsed)
}

func TestMessage_MetadataDefaultsToEmpty(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"role":"assistant","content":"ok"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{}, msg.Metadata)
	assert.Nil(t, msg.ToolCallID)
	assert.Nil(t, msg.Name)

	data, err := json.Marshal(Message{Role: RoleUser, Content: Text("x")})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"metadata":{}`)
}

func TestMessage_ParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  ParseErrorKind
		field string
	}{
		{name: "empty", input: ``, kind: ParseMalformedJSON},
		{name: "truncated", input: `{"role":"user",`, kind: ParseMalformedJSON},
		{name: "not an object", input: `["user"]`, kind: ParseInvalidType},
		{name: "missing role", input: `{"content":"hi"}`, kind: ParseMissingField, field: "role"},
		{name: "null role", input: `{"role":null,"content":"hi"}`, kind: ParseMissingField, field: "role"},
		{name: "unknown role", input: `{"role":"robot","content":"hi"}`, kind: ParseUnknownDiscriminator, field: "role"},
		{name: "uppercase role", input: `{"role":"User","content":"hi"}`, kind: ParseUnknownDiscriminator, field: "role"},
		{name: "numeric role", input: `{"role":1,"content":"hi"}`, kind: ParseInvalidType, field: "role"},
		{name: "missing content", input: `{"role":"user"}`, kind: ParseMissingField, field: "content"},
		{name: "object content", input: `{"role":"user","content":{"text":"hi"}}`, kind: ParseInvalidType, field: "content"},
		{name: "misspelled block type", input: `{"role":"user","content":[{"type":"tool_usex","id":"1","name":"x","input":{}}]}`, kind: ParseUnknownDiscriminator, field: "content[0].type"},
		{name: "block missing field", input: `{"role":"user","content":[{"type":"text"}]}`, kind: ParseMissingField, field: "content[0].text"},
		{name: "second block bad", input: `{"role":"user","content":[{"type":"text","text":"a"},{"type":"tool_result","tool_use_id":"c"}]}`, kind: ParseMissingField, field: "content[1].content"},
		{name: "metadata non-string", input: `{"role":"user","content":"x","metadata":{"a":1}}`, kind: ParseInvalidType},
		{name: "tool_call_id number", input: `{"role":"tool","content":"x","tool_call_id":7}`, kind: ParseInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.kind, pe.Kind, pe.Error())
			if tt.field != "" {
				assert.Equal(t, tt.field, pe.Field)
			}
		})
	}
}

func TestMessage_UnmarshalNested(t *testing.T) {
	var wrapper struct {
		Messages []Message `json:"messages"`
	}
	err := json.Unmarshal([]byte(`{"messages":[{"role":"user","content":"a"},{"role":"narrator","content":"b"}]}`), &wrapper)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ParseUnknownDiscriminator, pe.Kind)
	assert.Equal(t, "narrator", pe.Value)
}

func TestMessage_MarshalRejectsInvalid(t *testing.T) {
	_, err := json.Marshal(Message{Role: "robot", Content: Text("x")})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "role", vErr.Field)

	_, err = json.Marshal(Message{Role: RoleUser})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "content", vErr.Field)
}

func TestMessage_Validate(t *testing.T) {
	id := "call_1"
	name := "search"

	tests := []struct {
		name  string
		msg   Message
		field string
	}{
		{name: "valid tool without name", msg: Message{Role: RoleTool, Content: Text("ok"), ToolCallID: &id}},
		{name: "unknown role", msg: Message{Role: "robot", Content: Text("x")}, field: "role"},
		{name: "nil content", msg: Message{Role: RoleUser}, field: "content"},
		{name: "user with tool_call_id", msg: Message{Role: RoleUser, Content: Text("x"), ToolCallID: &id}, field: "tool_call_id"},
		{name: "assistant with name", msg: Message{Role: RoleAssistant, Content: Text("x"), Name: &name}, field: "name"},
		{name: "tool without tool_call_id", msg: Message{Role: RoleTool, Content: Text("x"), Name: &name}, field: "tool_call_id"},
		{name: "tool with block content", msg: Message{Role: RoleTool, Content: Blocks{NewTextBlock("x")}, ToolCallID: &id}, field: "content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestMessage_ToText(t *testing.T) {
	assert.Equal(t, "plain", User("plain").ToText())

	msg := Message{
		Role: RoleUser,
		Content: Blocks{
			NewTextBlock("first"),
			NewToolUseBlock("c1", "calc", nil),
			NewURLImage("https://example.com/x.png"),
			NewToolResultBlock("c1", "42"),
			NewTextBlock("last"),
		},
	}
	assert.Equal(t, "first\n42\nlast", msg.ToText())
	assert.Equal(t, "", Message{Role: RoleUser}.ToText())
}

func TestMessage_CloneIsIndependent(t *testing.T) {
	orig := ToolResult("c1", "calc", "3").WithMetadata("k", "v")
	clone := orig.Clone()

	clone.Metadata["k"] = "changed"
	*clone.ToolCallID = "other"

	assert.Equal(t, "v", orig.Metadata["k"])
	assert.Equal(t, "c1", *orig.ToolCallID)

	with := orig.WithMetadata("extra", "1")
	assert.NotContains(t, orig.Metadata, "extra")
	assert.Equal(t, "1", with.Metadata["extra"])
}

func TestParseContent(t *testing.T) {
	c, err := ParseContent([]byte(`"hi"`))
	require.NoError(t, err)
	assert.Equal(t, Text("hi"), c)

	c, err = ParseContent([]byte(` [{"type":"text","text":"a"}]`))
	require.NoError(t, err)
	assert.Equal(t, Blocks{NewTextBlock("a")}, c)

	_, err = ParseContent([]byte(`true`))
	assert.ErrorIs(t, err, ErrParse)
}

func TestRole(t *testing.T) {
	for _, r := range []Role{RoleSystem, RoleUser, RoleAssistant, RoleTool} {
		parsed, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}

	_, err := ParseRole("developer")
	assert.ErrorIs(t, err, ErrParse)
	assert.False(t, Role("").Valid())
}
