// Package core defines the universal message format (UMF): the
// provider-agnostic representation of a single conversational turn.
//
// A Message has a Role, Content and string metadata. Content is either plain
// Text or an ordered list of Blocks; a Block is one of TextBlock, ToolUseBlock,
// ToolResultBlock or ImageBlock. Both content variants, all blocks and image
// sources are closed sets implemented as sealed interfaces, so a type switch
// over them is exhaustive.
//
// The JSON encoding is exact: discriminators are lowercase, metadata is always
// an object and tool_call_id / name are always present (null when unset).
// Decoding never defaults silently; every failure is a *ParseError:
//
//	msg, err := core.ParseMessage(data)
//	if errors.Is(err, core.ErrParse) {
//		// report and continue
//	}
//
// Values are immutable once constructed. Semantic rules that the JSON shape
// cannot express (tool_call_id only on tool messages) are checked by
// Message.Validate and reported as *ValidationError.
package core
