// Package openai converts UMF messages, tools and stream deltas to and from
// the parameter types of the official OpenAI Go SDK. It performs no I/O:
// callers own the client and the request lifecycle.
package openai

import (
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/umf/chatml"
	"github.com/hupe1980/umf/core"
	"github.com/hupe1980/umf/stream"
)

// Messages converts a conversation into Chat Completions messages.
//
// Tool role messages become tool messages. tool_result blocks inside other
// messages are emitted as separate tool messages ahead of the remaining
// content. Images are only supported in user messages.
func Messages(msgs []core.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	var out []openai.ChatCompletionMessageParamUnion
	for i, m := range msgs {
		converted, err := message(m)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, converted...)
	}
	return out, nil
}

func message(m core.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	if m.Role == core.RoleTool {
		if m.ToolCallID == nil || *m.ToolCallID == "" {
			return nil, &core.ValidationError{Field: "tool_call_id", Message: "tool message requires a tool_call_id"}
		}
		return []openai.ChatCompletionMessageParamUnion{openai.ToolMessage(m.ToText(), *m.ToolCallID)}, nil
	}

	blocks, isBlocks := m.Blocks()
	if !isBlocks {
		text, _ := m.Text()
		return []openai.ChatCompletionMessageParamUnion{textMessage(m.Role, text)}, nil
	}

	var (
		out    []openai.ChatCompletionMessageParamUnion
		parts  []openai.ChatCompletionContentPartUnionParam
		images bool
	)
	for _, b := range blocks {
		switch blk := b.(type) {
		case core.ToolResultBlock:
			out = append(out, openai.ToolMessage(blk.Content, blk.ToolUseID))
		case core.TextBlock:
			parts = append(parts, openai.TextContentPart(blk.Text))
		case core.ImageBlock:
			url, err := imageURL(blk)
			if err != nil {
				return nil, err
			}
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
			images = true
		}
	}

	if images && m.Role != core.RoleUser {
		return nil, &core.ValidationError{Field: "content", Value: string(m.Role), Message: "images are only supported in user messages"}
	}

	// Tool calls and text travel through the flat chat shape.
	flat, err := chatml.Convert(m)
	if err != nil {
		return nil, err
	}
	switch {
	case m.Role == core.RoleAssistant && len(flat.ToolCalls) > 0:
		out = append(out, assistantWithToolCalls(flat.Content, flat.ToolCalls))
	case images:
		out = append(out, openai.UserMessage(parts))
	case len(parts) > 0:
		out = append(out, textMessage(m.Role, flat.Content))
	}
	return out, nil
}

func textMessage(role core.Role, text string) openai.ChatCompletionMessageParamUnion {
	switch role {
	case core.RoleSystem:
		return openai.SystemMessage(text)
	case core.RoleAssistant:
		return openai.AssistantMessage(text)
	default:
		return openai.UserMessage(text)
	}
}

func assistantWithToolCalls(text string, calls []core.ToolCall) openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageToolCallParam, 0, len(calls))
	for _, c := range calls {
		params = append(params, openai.ChatCompletionMessageToolCallParam{
			ID:   c.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      c.Function.Name,
				Arguments: c.Function.Arguments,
			},
		})
	}

	assistant := &openai.ChatCompletionAssistantMessageParam{Role: "assistant", ToolCalls: params}
	if text != "" {
		assistant.Content.OfString = openai.String(text)
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}
}

func imageURL(b core.ImageBlock) (string, error) {
	switch src := b.Source.(type) {
	case core.URLSource:
		return src.URL, nil
	case core.Base64Source:
		return "data:" + src.MediaType + ";base64," + src.Data, nil
	default:
		return "", &core.ValidationError{Field: "source", Message: "image source is required"}
	}
}

// Tools converts tool definitions into Chat Completions tool params.
func Tools(tools []core.Tool) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		fn := openai.FunctionDefinitionParam{
			Name:       t.Function.Name,
			Parameters: t.Function.Parameters,
		}
		if t.Function.Description != "" {
			fn.Description = openai.String(t.Function.Description)
		}
		out = append(out, openai.ChatCompletionToolParam{Type: "function", Function: fn})
	}
	return out
}

// ChunkDeltas converts one streamed choice into accumulator chunks. A finish
// reason yields a trailing stream.Done.
func ChunkDeltas(choice openai.ChatCompletionChunkChoice) []stream.Chunk {
	var chunks []stream.Chunk
	if choice.Delta.Content != "" {
		chunks = append(chunks, stream.TextDelta(choice.Delta.Content))
	}
	for _, tc := range choice.Delta.ToolCalls {
		delta := stream.ToolCallDelta{Index: int(tc.Index)}
		if tc.ID != "" {
			delta.ID = &tc.ID
		}
		if tc.Function.Name != "" {
			delta.Name = &tc.Function.Name
		}
		if tc.Function.Arguments != "" {
			delta.ArgumentsDelta = &tc.Function.Arguments
		}
		chunks = append(chunks, delta)
	}
	if choice.FinishReason != "" {
		chunks = append(chunks, stream.Done{})
	}
	return chunks
}

// FromCompletion converts a completed assistant message into UMF.
func FromCompletion(msg openai.ChatCompletionMessage) core.Message {
	if len(msg.ToolCalls) == 0 {
		return core.Assistant(msg.Content)
	}
	calls := make([]core.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		calls = append(calls, core.ToolCall{
			ID:   tc.ID,
			Type: core.FunctionType,
			Function: core.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return chatml.NewAssistantWithToolCalls(msg.Content, calls).ToInternal()
}

// ParseChunk decodes a raw streaming chunk payload (the data of one SSE
// event) and returns the deltas of its first choice.
func ParseChunk(data []byte) ([]stream.Chunk, error) {
	var chunk openai.ChatCompletionChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, core.WrapDecodeError("", err)
	}
	if len(chunk.Choices) == 0 {
		return nil, nil
	}
	return ChunkDeltas(chunk.Choices[0]), nil
}
