package chatml

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hupe1980/umf/core"
	"github.com/hupe1980/umf/internal/util"
	"github.com/hupe1980/umf/tokens"
)

// Formatter accumulates a conversation and renders it as ChatML or OpenAI
// chat messages. The Add* methods return the formatter for chaining. A
// Formatter is not safe for concurrent use.
type Formatter struct {
	messages []Message
}

// NewFormatter creates an empty formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Add appends arbitrary messages.
func (f *Formatter) Add(msgs ...Message) *Formatter {
	f.messages = append(f.messages, msgs...)
	return f
}

// AddInternal converts and appends UMF messages.
func (f *Formatter) AddInternal(msgs ...core.Message) *Formatter {
	for _, m := range msgs {
		f.messages = append(f.messages, FromInternal(m))
	}
	return f
}

// AddSystem appends a system message.
func (f *Formatter) AddSystem(content, name string) *Formatter {
	return f.Add(NewMessage(core.RoleSystem, content, name))
}

// AddUser appends a user message.
func (f *Formatter) AddUser(content, name string) *Formatter {
	return f.Add(NewMessage(core.RoleUser, content, name))
}

// AddAssistant appends an assistant message.
func (f *Formatter) AddAssistant(content, name string) *Formatter {
	return f.Add(NewMessage(core.RoleAssistant, content, name))
}

// AddAssistantWithToolCalls appends an assistant message carrying tool calls.
func (f *Formatter) AddAssistantWithToolCalls(content string, calls []core.ToolCall) *Formatter {
	return f.Add(NewAssistantWithToolCalls(content, calls))
}

// AddTool appends a tool result message.
func (f *Formatter) AddTool(content, callID, name string) *Formatter {
	return f.Add(NewToolMessage(content, callID, name))
}

// OpenAIFormat returns every message in OpenAI chat shape.
func (f *Formatter) OpenAIFormat() []map[string]any {
	out := make([]map[string]any, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.OpenAIFormat())
	}
	return out
}

// String renders the whole conversation as ChatML, one segment per message.
func (f *Formatter) String() string {
	parts := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, "\n")
}

// Clear removes every message.
func (f *Formatter) Clear() *Formatter {
	f.messages = nil
	return f
}

// LimitHistory keeps the first message (usually the system prompt) and the
// most recent max-1 messages. It is a no-op when the conversation already
// fits. A max of zero or less leaves only the first message.
func (f *Formatter) LimitHistory(max int) *Formatter {
	if len(f.messages) <= max || len(f.messages) == 0 {
		return f
	}
	keep := max - 1
	if keep < 0 {
		keep = 0
	}
	limited := make([]Message, 0, keep+1)
	limited = append(limited, f.messages[0])
	limited = append(limited, f.messages[len(f.messages)-keep:]...)
	f.messages = limited
	return f
}

// Len returns the number of messages.
func (f *Formatter) Len() int { return len(f.messages) }

// Last returns the most recent message.
func (f *Formatter) Last() (Message, bool) {
	if len(f.messages) == 0 {
		return Message{}, false
	}
	return f.messages[len(f.messages)-1], true
}

// Messages returns a copy of the conversation.
func (f *Formatter) Messages() []Message {
	return append([]Message(nil), f.messages...)
}

// Validate checks that every message is complete: content may only be empty
// when tool calls are present, system messages and plain assistant messages
// carry a name, and tool messages carry both tool_call_id and name.
func (f *Formatter) Validate() error {
	for i, m := range f.messages {
		field := func(name string) string { return fmt.Sprintf("messages[%d].%s", i, name) }

		if m.Content == "" && m.ToolCalls == nil {
			return &core.ValidationError{Field: field("content"), Message: "content is required without tool_calls"}
		}
		switch m.Role {
		case core.RoleSystem:
			if m.Name == "" {
				return &core.ValidationError{Field: field("name"), Message: "system message requires a name"}
			}
		case core.RoleAssistant:
			if m.ToolCalls == nil && m.Name == "" {
				return &core.ValidationError{Field: field("name"), Message: "assistant message without tool_calls requires a name"}
			}
		case core.RoleTool:
			if m.ToolCallID == "" {
				return &core.ValidationError{Field: field("tool_call_id"), Message: "tool message requires a tool_call_id"}
			}
			if m.Name == "" {
				return &core.ValidationError{Field: field("name"), Message: "tool message requires a name"}
			}
		}
	}
	return nil
}

// CountTokens counts the rendered ChatML conversation with counter. A nil
// counter uses tokens.Approximate.
func (f *Formatter) CountTokens(counter tokens.Counter) (int, error) {
	if counter == nil {
		counter = tokens.Approximate
	}
	return counter(f.String())
}

// ReplaceTemplateVariables substitutes every {key} placeholder in text.
// Unknown placeholders are left as is.
func (f *Formatter) ReplaceTemplateVariables(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	oldnew := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		oldnew = append(oldnew, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(oldnew...).Replace(text)
}

// RenderTemplate expands Go template placeholders ({{.key}}) in text.
func (f *Formatter) RenderTemplate(text string, vars map[string]any) (string, error) {
	return util.RenderTemplate(text, vars)
}

// ProcessTemplate reads a template file and substitutes its {key}
// placeholders.
func (f *Formatter) ProcessTemplate(path string, vars map[string]string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", path, err)
	}
	return f.ReplaceTemplateVariables(string(data), vars), nil
}

// FormatThoughtCommand renders a reasoning line followed by a fenced bash
// command.
func (f *Formatter) FormatThoughtCommand(thought, command string) string {
	return fmt.Sprintf("THOUGHT: %s\n\n```bash\n%s\n```", thought, command)
}
