package core

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/umf/internal/util"
)

// FunctionType is the only tool type currently defined on the wire.
const FunctionType = "function"

// Function describes a callable function offered to a model.
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON schema object
}

// Tool is a function made available to the model.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// NewTool creates a function tool from an explicit JSON schema.
func NewTool(name, description string, parameters map[string]any) Tool {
	if parameters == nil {
		parameters = util.CreateSchema(nil)
	}
	return Tool{
		Type: FunctionType,
		Function: Function{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// NewFunctionTool creates a function tool whose parameter schema is derived
// from the exported fields of params (a struct or pointer to struct).
//
//	type searchArgs struct {
//		Query string `json:"query"`
//		Limit int    `json:"limit,omitempty"`
//	}
//	tool := core.NewFunctionTool("search", "Search the web", searchArgs{})
func NewFunctionTool(name, description string, params any) Tool {
	return NewTool(name, description, util.CreateSchema(params))
}

// ValidateArguments checks args against the tool's parameter schema.
func (t Tool) ValidateArguments(args map[string]any) error {
	return util.ValidateParameters(args, t.Function.Parameters)
}

// FunctionCall names the function to invoke and carries its JSON encoded
// arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a model issued request to invoke a tool.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// NewToolCall creates a function tool call. Arguments are JSON encoded.
func NewToolCall(id, name string, args map[string]any) (ToolCall, error) {
	if args == nil {
		args = map[string]any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return ToolCall{}, fmt.Errorf("failed to encode arguments for %s: %w", name, err)
	}
	return ToolCall{
		ID:       id,
		Type:     FunctionType,
		Function: FunctionCall{Name: name, Arguments: string(encoded)},
	}, nil
}

// ParsedArguments decodes the JSON encoded arguments into an object. Empty
// arguments yield an empty object.
func (c ToolCall) ParsedArguments() (map[string]any, error) {
	args := map[string]any{}
	if c.Function.Arguments == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(c.Function.Arguments), &args); err != nil {
		return nil, WrapDecodeError("function.arguments", err)
	}
	return args, nil
}

// ToolUse converts the call into a tool_use content block.
func (c ToolCall) ToolUse() (ToolUseBlock, error) {
	args, err := c.ParsedArguments()
	if err != nil {
		return ToolUseBlock{}, err
	}
	return NewToolUseBlock(c.ID, c.Function.Name, args), nil
}

// ToolCall converts a tool_use block into its wire tool call.
func (b ToolUseBlock) ToolCall() (ToolCall, error) {
	return NewToolCall(b.ID, b.Name, b.Input)
}
