package openai

// ChatCompletionChunk is one server-sent event of a streamed completion.
// The envelope fields repeat on every chunk of a stream; the incremental
// payload lives in the per-choice deltas.
type ChatCompletionChunk struct {
	ID                string        `json:"id"`
	Object            string        `json:"object"`
	Created           int64         `json:"created"`
	Model             string        `json:"model"`
	ServiceTier       string        `json:"service_tier,omitempty"`
	SystemFingerprint string        `json:"system_fingerprint,omitempty"`
	Choices           []ChunkChoice `json:"choices"`
	// Usage arrives on at most one chunk, usually a final one with an
	// empty choice list when stream_options.include_usage was requested.
	Usage *Usage `json:"usage,omitempty"`
}

// ChunkChoice is the delta for one choice within a chunk.
type ChunkChoice struct {
	Index        int             `json:"index"`
	Delta        ChunkDelta      `json:"delta"`
	FinishReason *FinishReason   `json:"finish_reason"`
	Logprobs     *ChoiceLogprobs `json:"logprobs,omitempty"`
}

// ChunkDelta holds the incremental pieces of an assistant message.
// Content and refusal are pointers so an explicit null can be told apart
// from an empty fragment.
type ChunkDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   *string         `json:"content,omitempty"`
	Refusal   *string         `json:"refusal,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolCallDelta is a fragment of a tool call. Fragments carry no ordinal
// position; the aggregator matches them to in-progress calls by
// identifier when one is present, otherwise by position within the
// delta's tool_calls list.
type ToolCallDelta struct {
	ID       string        `json:"id,omitempty"`
	Type     string        `json:"type,omitempty"`
	Function FunctionDelta `json:"function"`
}

// FunctionDelta carries the name and argument fragment of a tool call.
// The name arrives once; argument fragments accumulate across chunks.
type FunctionDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}
