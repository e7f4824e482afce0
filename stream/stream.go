// Package stream accumulates streamed model output into a complete response.
//
// Providers stream text deltas and index-addressed tool call deltas. Indices
// may be sparse (a tool call can start at index 1 when index 0 is a text
// block), so tool calls are tracked by index and sorted when finished.
package stream

import (
	"context"
	"errors"
	"io"
	"slices"

	"github.com/hupe1980/umf/chatml"
	"github.com/hupe1980/umf/core"
)

// Chunk is one streamed delta: TextDelta, ToolCallDelta or Done.
type Chunk interface{ isChunk() }

// TextDelta appends text to the response.
type TextDelta string

// ToolCallDelta updates the tool call at Index. Non-nil ID and Name replace
// the current values; ArgumentsDelta is appended to the arguments.
type ToolCallDelta struct {
	Index          int
	ID             *string
	Name           *string
	ArgumentsDelta *string
}

// StartToolCall returns a delta opening the tool call at index.
func StartToolCall(index int, id, name string) ToolCallDelta {
	return ToolCallDelta{Index: index, ID: &id, Name: &name}
}

// AppendArguments returns a delta appending to the arguments at index.
func AppendArguments(index int, delta string) ToolCallDelta {
	return ToolCallDelta{Index: index, ArgumentsDelta: &delta}
}

// Done marks the end of the stream.
type Done struct{}

func (TextDelta) isChunk()     {}
func (ToolCallDelta) isChunk() {}
func (Done) isChunk()          {}

// Response is the accumulated result of a stream.
type Response struct {
	Text      string
	ToolCalls []core.ToolCall // In index order
}

// Message converts the response into an assistant message. Tool calls become
// tool_use blocks preceded by a text block when text was streamed.
func (r Response) Message() core.Message {
	if len(r.ToolCalls) == 0 {
		return core.Assistant(r.Text)
	}
	return chatml.NewAssistantWithToolCalls(r.Text, r.ToolCalls).ToInternal()
}

// Accumulator collects chunks. The zero value is ready to use. It is not
// safe for concurrent use.
type Accumulator struct {
	text  []byte
	calls map[int]*core.ToolCall
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Process applies chunk and reports whether the stream is done.
func (a *Accumulator) Process(chunk Chunk) bool {
	switch c := chunk.(type) {
	case TextDelta:
		a.text = append(a.text, string(c)...)
	case ToolCallDelta:
		if a.calls == nil {
			a.calls = make(map[int]*core.ToolCall)
		}
		call, ok := a.calls[c.Index]
		if !ok {
			call = &core.ToolCall{Type: core.FunctionType}
			a.calls[c.Index] = call
		}
		if c.ID != nil {
			call.ID = *c.ID
		}
		if c.Name != nil {
			call.Function.Name = *c.Name
		}
		if c.ArgumentsDelta != nil {
			call.Function.Arguments += *c.ArgumentsDelta
		}
	case Done:
		return true
	}
	return false
}

// Finish returns the accumulated response. Tool calls that never received a
// name are dropped.
func (a *Accumulator) Finish() Response {
	indices := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indices = append(indices, i)
	}
	slices.Sort(indices)

	var calls []core.ToolCall
	for _, i := range indices {
		if call := a.calls[i]; call.Function.Name != "" {
			calls = append(calls, *call)
		}
	}
	return Response{Text: string(a.text), ToolCalls: calls}
}

// Accumulate drains ch until a Done chunk arrives or ch is closed. It returns
// ctx.Err() if ctx is cancelled first.
func Accumulate(ctx context.Context, ch <-chan Chunk) (Response, error) {
	acc := NewAccumulator()
	for {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case chunk, ok := <-ch:
			if !ok || acc.Process(chunk) {
				return acc.Finish(), nil
			}
		}
	}
}

// Source yields chunks one at a time and returns io.EOF when exhausted.
type Source interface {
	Recv() (Chunk, error)
}

// AccumulateSource drains src until Done or io.EOF. Any other error aborts
// accumulation.
func AccumulateSource(src Source) (Response, error) {
	acc := NewAccumulator()
	for {
		chunk, err := src.Recv()
		if errors.Is(err, io.EOF) {
			return acc.Finish(), nil
		}
		if err != nil {
			return Response{}, err
		}
		if acc.Process(chunk) {
			return acc.Finish(), nil
		}
	}
}
