package openai

// Usage reports token consumption for a completion. The counts come
// straight from the provider; nothing here recomputes or checks them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	PromptTokensDetails     *PromptTokensDetails     `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
}

// PromptTokensDetails breaks down the prompt side of the count.
type PromptTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
	AudioTokens  int `json:"audio_tokens"`
}

// CompletionTokensDetails breaks down the completion side of the count.
type CompletionTokensDetails struct {
	ReasoningTokens          int `json:"reasoning_tokens"`
	AudioTokens              int `json:"audio_tokens"`
	AcceptedPredictionTokens int `json:"accepted_prediction_tokens"`
	RejectedPredictionTokens int `json:"rejected_prediction_tokens"`
}

func (u *Usage) clone() *Usage {
	if u == nil {
		return nil
	}
	out := *u
	if u.PromptTokensDetails != nil {
		details := *u.PromptTokensDetails
		out.PromptTokensDetails = &details
	}
	if u.CompletionTokensDetails != nil {
		details := *u.CompletionTokensDetails
		out.CompletionTokensDetails = &details
	}
	return &out
}
