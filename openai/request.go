package openai

import "fmt"

// ChatRequest is the body of a chat completion call. Optional fields are
// omitted from the wire when unset so provider defaults apply;
// Temperature, TopP and Seed are pointers because zero is a meaningful
// setting for them.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`

	MaxTokens           int            `json:"max_tokens,omitempty"`
	MaxCompletionTokens int            `json:"max_completion_tokens,omitempty"`
	N                   int            `json:"n,omitempty"`
	Seed                *int           `json:"seed,omitempty"`
	Temperature         *float64       `json:"temperature,omitempty"`
	TopP                *float64       `json:"top_p,omitempty"`
	PresencePenalty     float64        `json:"presence_penalty,omitempty"`
	FrequencyPenalty    float64        `json:"frequency_penalty,omitempty"`
	LogitBias           map[string]int `json:"logit_bias,omitempty"`
	Logprobs            bool           `json:"logprobs,omitempty"`
	TopLogprobs         int            `json:"top_logprobs,omitempty"`
	Stop                []string       `json:"stop,omitempty"`
	User                string         `json:"user,omitempty"`
	ResponseFormat      any            `json:"response_format,omitempty"`

	Tools      []Tool `json:"tools,omitempty"`
	ToolChoice any    `json:"tool_choice,omitempty"`

	// Stream and StreamOptions are managed by the client methods; set
	// them only when marshalling requests yourself.
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`
}

// StreamOptions tweaks streaming behavior.
type StreamOptions struct {
	// IncludeUsage asks the provider to append a usage-only chunk at
	// the end of the stream.
	IncludeUsage bool `json:"include_usage"`
}

// Validate checks the request before it goes on the wire.
func (r *ChatRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("request is nil")
	}
	if r.Model == "" {
		return fmt.Errorf("model is required")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("at least one message is required")
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return fmt.Errorf("temperature %v out of range [0, 2]", *r.Temperature)
	}
	if r.TopP != nil && (*r.TopP < 0 || *r.TopP > 1) {
		return fmt.Errorf("top_p %v out of range [0, 1]", *r.TopP)
	}
	if r.TopLogprobs < 0 || r.TopLogprobs > 20 {
		return fmt.Errorf("top_logprobs %d out of range [0, 20]", r.TopLogprobs)
	}
	return nil
}

// Tool declares a function the model may call.
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes one callable function. Parameters is a
// JSON schema object; FuncParams builds one from a Go struct.
type FunctionDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// FuncTool is a shorthand for declaring a function tool.
func FuncTool(name, description string, parameters any) Tool {
	return Tool{
		Type: "function",
		Function: FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}
