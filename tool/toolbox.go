package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AlexKlim/llmchat-go/openai"
)

// Toolbox routes assembled tool calls to their implementations.
type Toolbox struct {
	tools map[string]Tool
	order []string
}

// Box returns a new Toolbox containing the given tools.
func Box(tools ...Tool) *Toolbox {
	b := &Toolbox{tools: make(map[string]Tool)}
	for _, t := range tools {
		b.Add(t)
	}
	return b
}

// Add adds a tool to the toolbox.
func (b *Toolbox) Add(t Tool) {
	name := t.Name()
	if _, ok := b.tools[name]; ok {
		panic(fmt.Sprintf("tool %q already exists", name))
	}
	b.tools[name] = t
	b.order = append(b.order, name)
}

// Get returns the tool with the given function name, or nil.
func (b *Toolbox) Get(name string) Tool {
	return b.tools[name]
}

// Definitions returns the declarations for a request's tool list, in
// the order the tools were added.
func (b *Toolbox) Definitions() []openai.Tool {
	defs := make([]openai.Tool, 0, len(b.order))
	for _, name := range b.order {
		defs = append(defs, b.tools[name].Definition())
	}
	return defs
}

// Call runs the tool named by an assembled call. A name the box does
// not know comes back as an error result, so the model hears about its
// mistake instead of the stream dying.
func (b *Toolbox) Call(ctx context.Context, call openai.ToolCall) Result {
	t := b.Get(call.Function.Name)
	if t == nil {
		err := fmt.Errorf("tool %q not found", call.Function.Name)
		return Error(err.Error(), err)
	}
	return t.Call(ctx, json.RawMessage(call.Function.Arguments))
}

// Message wraps a call's result as the tool message answering it. A
// call that somehow lacks an identifier is answered under its function
// name so the reply still correlates.
func Message(call openai.ToolCall, result Result) openai.ChatMessage {
	callID := call.ID
	if callID == "" {
		callID = call.Function.Name
	}
	return openai.ChatMessage{
		Role:       "tool",
		Content:    result.Content(),
		ToolCallID: callID,
	}
}
