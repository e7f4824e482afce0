package core

import (
	"bytes"
	"encoding/json"
)

// BlockType is the wire discriminator of a content block.
type BlockType string

const (
	BlockTypeText       BlockType = "text"
	BlockTypeToolUse    BlockType = "tool_use"
	BlockTypeToolResult BlockType = "tool_result"
	BlockTypeImage      BlockType = "image"
)

// Block represents one segment of structured message content. Concrete block
// types implement the unexported isBlock marker enabling a closed set; use a
// type switch to branch on the variant.
type Block interface {
	BlockType() BlockType
	isBlock()
}

// TextBlock is a plain text content segment.
type TextBlock struct {
	Text string
}

// ToolUseBlock is a model request to invoke a tool.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]any // Always a JSON object on the wire
}

// ToolResultBlock carries the string result for a prior tool_use id.
type ToolResultBlock struct {
	ToolUseID string
	Content   string
}

// ImageBlock embeds or references an image.
type ImageBlock struct {
	Source ImageSource
}

func (TextBlock) BlockType() BlockType       { return BlockTypeText }
func (ToolUseBlock) BlockType() BlockType    { return BlockTypeToolUse }
func (ToolResultBlock) BlockType() BlockType { return BlockTypeToolResult }
func (ImageBlock) BlockType() BlockType      { return BlockTypeImage }

func (TextBlock) isBlock()       {}
func (ToolUseBlock) isBlock()    {}
func (ToolResultBlock) isBlock() {}
func (ImageBlock) isBlock()      {}

// NewTextBlock creates a text block.
func NewTextBlock(text string) TextBlock { return TextBlock{Text: text} }

// NewToolUseBlock creates a tool_use block. A nil input is normalised to an
// empty object so the wire shape stays an object; other inputs are stored in
// decoded JSON form (see NormalizeJSON).
func NewToolUseBlock(id, name string, input map[string]any) ToolUseBlock {
	if input == nil {
		return ToolUseBlock{ID: id, Name: name, Input: map[string]any{}}
	}
	return ToolUseBlock{ID: id, Name: name, Input: NormalizeJSON(input)}
}

// NewToolResultBlock creates a tool_result block answering callID.
func NewToolResultBlock(callID, content string) ToolResultBlock {
	return ToolResultBlock{ToolUseID: callID, Content: content}
}

// NewImageBlock creates an image block from a source.
func NewImageBlock(source ImageSource) ImageBlock { return ImageBlock{Source: source} }

// MarshalJSON emits {"type":"text","text":...}.
func (b TextBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		Text string    `json:"text"`
	}{BlockTypeText, b.Text})
}

// MarshalJSON emits {"type":"tool_use","id":...,"name":...,"input":{...}}.
func (b ToolUseBlock) MarshalJSON() ([]byte, error) {
	input := b.Input
	if input == nil {
		input = map[string]any{}
	}
	return json.Marshal(struct {
		Type  BlockType      `json:"type"`
		ID    string         `json:"id"`
		Name  string         `json:"name"`
		Input map[string]any `json:"input"`
	}{BlockTypeToolUse, b.ID, b.Name, input})
}

// MarshalJSON emits {"type":"tool_result","tool_use_id":...,"content":...}.
func (b ToolResultBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      BlockType `json:"type"`
		ToolUseID string    `json:"tool_use_id"`
		Content   string    `json:"content"`
	}{BlockTypeToolResult, b.ToolUseID, b.Content})
}

// MarshalJSON emits {"type":"image","source":{...}}.
func (b ImageBlock) MarshalJSON() ([]byte, error) {
	if b.Source == nil {
		return nil, &ValidationError{Field: "source", Message: "image source is required"}
	}
	return json.Marshal(struct {
		Type   BlockType   `json:"type"`
		Source ImageSource `json:"source"`
	}{BlockTypeImage, b.Source})
}

// rawBlock is the union of every block field; pointers distinguish absent
// fields from zero values.
type rawBlock struct {
	Type      *string         `json:"type"`
	Text      *string         `json:"text"`
	ID        *string         `json:"id"`
	Name      *string         `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID *string         `json:"tool_use_id"`
	Content   *string         `json:"content"`
	Source    json.RawMessage `json:"source"`
}

// ParseBlock decodes a single content block, dispatching on its "type"
// discriminator. Unknown discriminators and missing fields fail with *ParseError.
func ParseBlock(data []byte) (Block, error) {
	return parseBlock("", data)
}

func parseBlock(path string, data []byte) (Block, error) {
	if err := expectObject(path, data); err != nil {
		return nil, err
	}

	var raw rawBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, WrapDecodeError(path, err)
	}

	if raw.Type == nil {
		return nil, NewMissingFieldError(joinField(path, "type"))
	}

	switch BlockType(*raw.Type) {
	case BlockTypeText:
		if raw.Text == nil {
			return nil, NewMissingFieldError(joinField(path, "text"))
		}
		return TextBlock{Text: *raw.Text}, nil
	case BlockTypeToolUse:
		if raw.ID == nil {
			return nil, NewMissingFieldError(joinField(path, "id"))
		}
		if raw.Name == nil {
			return nil, NewMissingFieldError(joinField(path, "name"))
		}
		input, err := decodeObject(joinField(path, "input"), raw.Input)
		if err != nil {
			return nil, err
		}
		return ToolUseBlock{ID: *raw.ID, Name: *raw.Name, Input: input}, nil
	case BlockTypeToolResult:
		if raw.ToolUseID == nil {
			return nil, NewMissingFieldError(joinField(path, "tool_use_id"))
		}
		if raw.Content == nil {
			return nil, NewMissingFieldError(joinField(path, "content"))
		}
		return ToolResultBlock{ToolUseID: *raw.ToolUseID, Content: *raw.Content}, nil
	case BlockTypeImage:
		if isAbsent(raw.Source) {
			return nil, NewMissingFieldError(joinField(path, "source"))
		}
		source, err := parseImageSource(joinField(path, "source"), raw.Source)
		if err != nil {
			return nil, err
		}
		return ImageBlock{Source: source}, nil
	default:
		return nil, NewUnknownDiscriminatorError(joinField(path, "type"), *raw.Type)
	}
}

// Blocks is an ordered sequence of content blocks. It is one of the two
// Content variants and serializes as a bare JSON array.
type Blocks []Block

func (Blocks) isContent() {}

// MarshalJSON emits a JSON array; a nil slice encodes as [].
func (b Blocks) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Block(b))
}

// UnmarshalJSON decodes a JSON array of blocks.
func (b *Blocks) UnmarshalJSON(data []byte) error {
	blocks, err := parseBlocks("", data)
	if err != nil {
		return err
	}
	*b = blocks
	return nil
}

func parseBlocks(path string, data []byte) (Blocks, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, NewInvalidTypeError(path, errNotArray)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, WrapDecodeError(path, err)
	}

	blocks := make(Blocks, 0, len(items))
	for i, item := range items {
		block, err := parseBlock(indexField(path, i), item)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}
