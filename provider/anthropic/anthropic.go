// Package anthropic converts UMF messages, tools and stream events to and
// from the parameter types of the official Anthropic Go SDK. It performs no
// I/O: callers own the client and the request lifecycle.
package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/umf/core"
	"github.com/hupe1980/umf/stream"
)

// Messages splits a conversation into the system prompt and the Messages API
// turns.
//
// System messages are lifted into the system prompt. Tool role messages are
// sent as user turns carrying a tool_result block. Adjacent turns with the
// same role are merged because the API requires strict alternation.
func Messages(msgs []core.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam, error) {
	var (
		system []anthropic.TextBlockParam
		out    []anthropic.MessageParam
	)
	for i, m := range msgs {
		if m.Role == core.RoleSystem {
			if text := m.ToText(); text != "" {
				system = append(system, anthropic.TextBlockParam{Text: text})
			}
			continue
		}

		role, blocks, err := turn(m)
		if err != nil {
			return nil, nil, fmt.Errorf("message %d: %w", i, err)
		}
		if len(blocks) == 0 {
			continue
		}

		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			continue
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}
	return system, out, nil
}

func turn(m core.Message) (anthropic.MessageParamRole, []anthropic.ContentBlockParamUnion, error) {
	switch m.Role {
	case core.RoleTool:
		if m.ToolCallID == nil || *m.ToolCallID == "" {
			return "", nil, &core.ValidationError{Field: "tool_call_id", Message: "tool message requires a tool_call_id"}
		}
		return anthropic.MessageParamRoleUser, []anthropic.ContentBlockParamUnion{
			anthropic.NewToolResultBlock(*m.ToolCallID, m.ToText(), false),
		}, nil
	case core.RoleAssistant:
		blocks, err := contentBlocks(m)
		return anthropic.MessageParamRoleAssistant, blocks, err
	default:
		blocks, err := contentBlocks(m)
		return anthropic.MessageParamRoleUser, blocks, err
	}
}

func contentBlocks(m core.Message) ([]anthropic.ContentBlockParamUnion, error) {
	blocks, isBlocks := m.Blocks()
	if !isBlocks {
		text, _ := m.Text()
		if text == "" {
			return nil, nil
		}
		return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(text)}, nil
	}

	out := make([]anthropic.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch blk := b.(type) {
		case core.TextBlock:
			if blk.Text != "" {
				out = append(out, anthropic.NewTextBlock(blk.Text))
			}
		case core.ToolUseBlock:
			out = append(out, anthropic.NewToolUseBlock(blk.ID, blk.Input, blk.Name))
		case core.ToolResultBlock:
			out = append(out, anthropic.NewToolResultBlock(blk.ToolUseID, blk.Content, false))
		case core.ImageBlock:
			img, err := image(blk)
			if err != nil {
				return nil, err
			}
			out = append(out, img)
		}
	}
	return out, nil
}

func image(b core.ImageBlock) (anthropic.ContentBlockParamUnion, error) {
	switch src := b.Source.(type) {
	case core.Base64Source:
		return anthropic.NewImageBlockBase64(src.MediaType, src.Data), nil
	case core.URLSource:
		return anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: src.URL}), nil
	default:
		return anthropic.ContentBlockParamUnion{}, &core.ValidationError{Field: "source", Message: "image source is required"}
	}
}

// Tools converts tool definitions into Messages API tool params.
func Tools(tools []core.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if props, ok := t.Function.Parameters["properties"]; ok {
			schema.Properties = props
		}
		schema.Required = requiredFields(t.Function.Parameters["required"])

		tool := anthropic.ToolUnionParamOfTool(schema, t.Function.Name)
		if t.Function.Description != "" {
			tool.OfTool.Description = anthropic.String(t.Function.Description)
		}
		out = append(out, tool)
	}
	return out
}

func requiredFields(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// FromMessage converts an API response into an assistant message.
func FromMessage(msg anthropic.Message) core.Message {
	return FromContentBlocks(msg.Content)
}

// FromContentBlocks converts response content into an assistant message.
// Text-only responses yield plain text content; thinking and other block
// types are dropped.
func FromContentBlocks(content []anthropic.ContentBlockUnion) core.Message {
	var (
		blocks  core.Blocks
		texts   []string
		hasTool bool
	)
	for _, b := range content {
		switch b.Type {
		case "text":
			blocks = append(blocks, core.NewTextBlock(b.Text))
			texts = append(texts, b.Text)
		case "tool_use":
			blocks = append(blocks, core.NewToolUseBlock(b.ID, b.Name, toolInput(b.Input)))
			hasTool = true
		}
	}

	if !hasTool {
		return core.Assistant(strings.Join(texts, ""))
	}
	return core.Message{Role: core.RoleAssistant, Content: blocks, Metadata: map[string]string{}}
}

func toolInput(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil
	}
	return input
}

// StreamChunks converts one Messages API stream event into accumulator
// chunks. Content block indices are used as tool call indices, so a tool
// call following a text block starts at index 1.
func StreamChunks(ev anthropic.MessageStreamEventUnion) []stream.Chunk {
	switch ev.Type {
	case "content_block_start":
		switch ev.ContentBlock.Type {
		case "tool_use":
			return []stream.Chunk{stream.StartToolCall(int(ev.Index), ev.ContentBlock.ID, ev.ContentBlock.Name)}
		case "text":
			if ev.ContentBlock.Text != "" {
				return []stream.Chunk{stream.TextDelta(ev.ContentBlock.Text)}
			}
		}
	case "content_block_delta":
		switch ev.Delta.Type {
		case "text_delta":
			return []stream.Chunk{stream.TextDelta(ev.Delta.Text)}
		case "input_json_delta":
			return []stream.Chunk{stream.AppendArguments(int(ev.Index), ev.Delta.PartialJSON)}
		}
	case "message_stop":
		return []stream.Chunk{stream.Done{}}
	}
	return nil
}

// ParseStreamEvent decodes the data of one SSE event and converts it.
func ParseStreamEvent(data []byte) ([]stream.Chunk, error) {
	var ev anthropic.MessageStreamEventUnion
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, core.WrapDecodeError("", err)
	}
	return StreamChunks(ev), nil
}
