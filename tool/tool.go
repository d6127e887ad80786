// Package tool executes the function calls a model makes during a chat.
// A Tool pairs the declaration sent in a request's tool list with a Go
// function; a Toolbox routes assembled calls to the right tool and wraps
// their results as tool messages for the follow-up request.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AlexKlim/llmchat-go/openai"
)

type Tool interface {
	// Name returns the function name the model calls this tool by.
	Name() string
	// Description returns the description of the tool.
	Description() string
	// Definition returns the declaration for a request's tool list.
	Definition() openai.Tool
	// Call runs the tool on the argument JSON the model produced.
	Call(ctx context.Context, arguments json.RawMessage) Result
}

// Func returns a tool with a typed handler. Arguments are validated
// against the schema generated from Params before the handler runs, so
// a malformed call comes back as an error result instead of a handler
// seeing zero values.
func Func[Params any](name, description string, fn func(ctx context.Context, params Params) Result) Tool {
	parameters := openai.FuncParams[Params]()
	return &funcTool{
		name:        name,
		description: description,
		definition:  openai.FuncTool(name, description, parameters),
		call: func(ctx context.Context, arguments json.RawMessage) Result {
			if err := validateParams(parameters, arguments); err != nil {
				return Error("Model misbehaved", fmt.Errorf("validation error for %s: %w", name, err))
			}
			var params Params
			if err := json.Unmarshal(arguments, &params); err != nil {
				return Error("Model misbehaved", fmt.Errorf("unmarshal error for %s: %w", name, err))
			}
			return fn(ctx, params)
		},
	}
}

type funcTool struct {
	name, description string
	definition        openai.Tool
	call              func(ctx context.Context, arguments json.RawMessage) Result
}

func (t *funcTool) Name() string {
	return t.name
}

func (t *funcTool) Description() string {
	return t.description
}

func (t *funcTool) Definition() openai.Tool {
	return t.definition
}

func (t *funcTool) Call(ctx context.Context, arguments json.RawMessage) Result {
	return t.call(ctx, arguments)
}
