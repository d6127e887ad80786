package openai

// ChoiceLogprobs carries the log probability traces for one choice.
// Content and refusal tokens are tracked separately.
type ChoiceLogprobs struct {
	Content []TokenLogprob `json:"content,omitempty"`
	Refusal []TokenLogprob `json:"refusal,omitempty"`
}

// TokenLogprob is the trace for a single emitted token. TopLogprobs
// lists the alternatives the model weighed; the entries share this shape
// even though providers fill in only one level of them.
type TokenLogprob struct {
	Token       string         `json:"token"`
	Logprob     float64        `json:"logprob"`
	Bytes       []int          `json:"bytes,omitempty"`
	TopLogprobs []TokenLogprob `json:"top_logprobs,omitempty"`
}

// cloneTokenLogprobs deep-copies a trace, including each entry's Bytes
// and nested TopLogprobs slices.
func cloneTokenLogprobs(entries []TokenLogprob) []TokenLogprob {
	if len(entries) == 0 {
		return nil
	}
	out := make([]TokenLogprob, len(entries))
	for i, entry := range entries {
		if len(entry.Bytes) > 0 {
			entry.Bytes = append([]int(nil), entry.Bytes...)
		}
		entry.TopLogprobs = cloneTokenLogprobs(entry.TopLogprobs)
		out[i] = entry
	}
	return out
}
