package openai

// FinishReason explains why the model stopped emitting tokens for a
// choice. Providers occasionally introduce new values; anything outside
// the known set is carried through verbatim rather than rejected.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
)

// Known reports whether r is one of the finish reasons this package
// recognizes.
func (r FinishReason) Known() bool {
	switch r {
	case FinishReasonStop, FinishReasonLength, FinishReasonToolCalls, FinishReasonContentFilter:
		return true
	}
	return false
}
