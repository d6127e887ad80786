package openai

// ChatCompletion is the provider's answer to a chat request, either
// decoded from a non-streaming call or rebuilt from a chunk stream by
// StreamAggregator.
type ChatCompletion struct {
	ID                string   `json:"id"`
	Object            string   `json:"object"`
	Created           int64    `json:"created"`
	Model             string   `json:"model"`
	ServiceTier       string   `json:"service_tier,omitempty"`
	SystemFingerprint string   `json:"system_fingerprint,omitempty"`
	Choices           []Choice `json:"choices"`
	Usage             *Usage   `json:"usage,omitempty"`
}

// Choice is one completed choice of a chat completion. A choice taken
// from an unfinished stream has the zero FinishReason.
type Choice struct {
	Index        int             `json:"index"`
	Message      ChatMessage     `json:"message"`
	FinishReason FinishReason    `json:"finish_reason,omitempty"`
	Logprobs     *ChoiceLogprobs `json:"logprobs,omitempty"`
}

// ChatMessage is a message in a conversation, both as sent in requests
// and as returned in completions.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Refusal    string     `json:"refusal,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a fully assembled tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function to invoke and carries its raw argument
// JSON. The argument string is passed through exactly as the model
// produced it; whether it parses is for the caller to decide.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}
