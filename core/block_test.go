package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_WireShapes(t *testing.T) {
	tests := []struct {
		name  string
		block Block
		want  string
	}{
		{
			name:  "text",
			block: NewTextBlock("hi"),
			want:  `{"type":"text","text":"hi"}`,
		},
		{
			name:  "tool_use",
			block: NewToolUseBlock("call_123", "search", map[string]any{"query": "rust"}),
			want:  `{"type":"tool_use","id":"call_123","name":"search","input":{"query":"rust"}}`,
		},
		{
			name:  "tool_use nil input",
			block: ToolUseBlock{ID: "c", Name: "noop"},
			want:  `{"type":"tool_use","id":"c","name":"noop","input":{}}`,
		},
		{
			name:  "tool_result",
			block: NewToolResultBlock("call_123", "3 results"),
			want:  `{"type":"tool_result","tool_use_id":"call_123","content":"3 results"}`,
		},
		{
			name:  "image base64",
			block: NewBase64Image("image/png", "AAAA"),
			want:  `{"type":"image","source":{"type":"base64","media_type":"image/png","data":"AAAA"}}`,
		},
		{
			name:  "image url",
			block: NewImageBlock(URLSource{URL: "https://example.com/a.png"}),
			want:  `{"type":"image","source":{"type":"url","url":"https://example.com/a.png"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.block)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))

			parsed, err := ParseBlock(data)
			require.NoError(t, err)
			assert.Equal(t, tt.block.BlockType(), parsed.BlockType())

			again, err := json.Marshal(parsed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(again))
		})
	}
}

func TestBlock_ParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  ParseErrorKind
		field string
		value string
	}{
		{name: "misspelled discriminator", input: `{"type":"tool_usex","id":"1","name":"x","input":{}}`, kind: ParseUnknownDiscriminator, field: "type", value: "tool_usex"},
		{name: "uppercase discriminator", input: `{"type":"TEXT","text":"a"}`, kind: ParseUnknownDiscriminator, field: "type", value: "TEXT"},
		{name: "missing type", input: `{"text":"a"}`, kind: ParseMissingField, field: "type"},
		{name: "numeric text", input: `{"type":"text","text":5}`, kind: ParseInvalidType},
		{name: "tool_use missing id", input: `{"type":"tool_use","name":"x","input":{}}`, kind: ParseMissingField, field: "id"},
		{name: "tool_use missing input", input: `{"type":"tool_use","id":"1","name":"x"}`, kind: ParseMissingField, field: "input"},
		{name: "tool_use array input", input: `{"type":"tool_use","id":"1","name":"x","input":[1]}`, kind: ParseInvalidType, field: "input"},
		{name: "tool_result missing tool_use_id", input: `{"type":"tool_result","content":"x"}`, kind: ParseMissingField, field: "tool_use_id"},
		{name: "image missing source", input: `{"type":"image"}`, kind: ParseMissingField, field: "source"},
		{name: "image unknown source", input: `{"type":"image","source":{"type":"ftp","url":"x"}}`, kind: ParseUnknownDiscriminator, field: "source.type", value: "ftp"},
		{name: "base64 missing data", input: `{"type":"image","source":{"type":"base64","media_type":"image/png"}}`, kind: ParseMissingField, field: "source.data"},
		{name: "url missing url", input: `{"type":"image","source":{"type":"url"}}`, kind: ParseMissingField, field: "source.url"},
		{name: "not an object", input: `"text"`, kind: ParseInvalidType},
		{name: "garbage", input: `{"type":`, kind: ParseMalformedJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBlock([]byte(tt.input))

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.kind, pe.Kind, pe.Error())
			if tt.field != "" {
				assert.Equal(t, tt.field, pe.Field)
			}
			if tt.value != "" {
				assert.Equal(t, tt.value, pe.Value)
			}
		})
	}
}

func TestBlocks_JSON(t *testing.T) {
	data, err := json.Marshal(Blocks(nil))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	var blocks Blocks
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"text","text":"a"},{"type":"tool_result","tool_use_id":"c","content":"r"}]`), &blocks))
	assert.Equal(t, Blocks{NewTextBlock("a"), NewToolResultBlock("c", "r")}, blocks)

	err = json.Unmarshal([]byte(`{"type":"text"}`), &blocks)
	assert.ErrorIs(t, err, ErrParse)
}

func TestImageBlock_NilSource(t *testing.T) {
	_, err := json.Marshal(ImageBlock{})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "source", vErr.Field)
}

func TestParseError_Messages(t *testing.T) {
	assert.Equal(t, `parse error: missing required field "content"`, NewMissingFieldError("content").Error())
	assert.Equal(t, `parse error: unknown type "tool_usex"`, NewUnknownDiscriminatorError("type", "tool_usex").Error())
	assert.Equal(t, `parse error: unknown event_type "bogus"`, (&ParseError{Kind: ParseUnknownEventType, Value: "bogus"}).Error())
	assert.Equal(t, "parse error: invalid_type at role: expected a JSON string", NewInvalidTypeError("role", errNotString).Error())

	pe := &ParseError{Kind: ParseUnknownEventType}
	assert.ErrorIs(t, pe, ErrParse)
	assert.ErrorIs(t, pe, ErrUnknownEventType)
	assert.NotErrorIs(t, NewMissingFieldError("x"), ErrUnknownEventType)
}
