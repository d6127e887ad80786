package openai

import (
	"sort"
	"strconv"
	"strings"
)

// objectCompletion is the object tag stamped on an assembled result.
// Chunks carry their own tag; the aggregator only checks that it stays
// constant across the stream.
const objectCompletion = "chat.completion"

// StreamAggregator folds a stream of chunks back into the completion a
// non-streaming call would have returned: concatenated message content,
// assembled tool calls, final finish reasons and token usage. Feed every
// decoded chunk to Ingest in arrival order, then call Finalize.
//
// An aggregator serves one stream and one goroutine. The zero value is
// not usable; call NewStreamAggregator.
type StreamAggregator struct {
	id                string
	object            string
	created           int64
	model             string
	serviceTier       string
	systemFingerprint string

	choices map[int]*choiceState
	usage   *Usage
	chunks  int

	failure error
	final   *ChatCompletion
}

func NewStreamAggregator() *StreamAggregator {
	return &StreamAggregator{choices: make(map[int]*choiceState)}
}

// Ingest merges one chunk into the running state. The first violation of
// the stream's invariants poisons the aggregator: the same error comes
// back from every later Ingest and from Finalize.
func (a *StreamAggregator) Ingest(chunk *ChatCompletionChunk) error {
	if a.failure != nil {
		return a.failure
	}
	if a.final != nil {
		return ErrAlreadyFinalized
	}
	a.chunks++
	if err := a.mergeEnvelope(chunk); err != nil {
		return a.fail(err)
	}
	if chunk.Usage != nil {
		if a.usage != nil {
			return a.fail(&DuplicateUsageError{})
		}
		a.usage = chunk.Usage.clone()
	}
	for i := range chunk.Choices {
		choice := &chunk.Choices[i]
		state, ok := a.choices[choice.Index]
		if !ok {
			state = newChoiceState(choice.Index)
			a.choices[choice.Index] = state
		}
		if err := state.apply(choice); err != nil {
			return a.fail(err)
		}
	}
	return nil
}

// Finalize assembles the completion. It is idempotent: repeat calls
// return the same value, and a poisoned aggregator keeps returning its
// first error. Finalizing before the stream finished is allowed; choices
// that never delivered a finish reason report the zero FinishReason.
// Finalizing with no chunks ingested returns ErrEmptyStream.
func (a *StreamAggregator) Finalize() (*ChatCompletion, error) {
	if a.failure != nil {
		return nil, a.failure
	}
	if a.final != nil {
		return a.final, nil
	}
	if a.chunks == 0 {
		return nil, a.fail(ErrEmptyStream)
	}
	a.final = a.assemble()
	a.choices = nil
	return a.final, nil
}

// Snapshot returns an independent copy of everything aggregated so far,
// for rendering partial progress. The copy never changes when more
// chunks arrive. After Finalize it returns the final result; after a
// failure it returns nil.
func (a *StreamAggregator) Snapshot() *ChatCompletion {
	if a.failure != nil {
		return nil
	}
	if a.final != nil {
		return a.final
	}
	return a.assemble()
}

func (a *StreamAggregator) fail(err error) error {
	a.failure = err
	return err
}

func (a *StreamAggregator) mergeEnvelope(chunk *ChatCompletionChunk) error {
	if err := pin(&a.id, chunk.ID, "id"); err != nil {
		return err
	}
	if err := pin(&a.object, chunk.Object, "object"); err != nil {
		return err
	}
	if err := pin(&a.model, chunk.Model, "model"); err != nil {
		return err
	}
	if err := pin(&a.serviceTier, chunk.ServiceTier, "service_tier"); err != nil {
		return err
	}
	if err := pin(&a.systemFingerprint, chunk.SystemFingerprint, "system_fingerprint"); err != nil {
		return err
	}
	if chunk.Created != 0 {
		if a.created == 0 {
			a.created = chunk.Created
		} else if a.created != chunk.Created {
			return &EnvelopeMismatchError{
				Field: "created",
				Prev:  strconv.FormatInt(a.created, 10),
				Next:  strconv.FormatInt(chunk.Created, 10),
			}
		}
	}
	return nil
}

// pin records the first non-empty value of an envelope field and rejects
// later chunks that disagree. An absent value never conflicts.
func pin(slot *string, value, field string) error {
	if value == "" {
		return nil
	}
	if *slot == "" {
		*slot = value
		return nil
	}
	if *slot != value {
		return &EnvelopeMismatchError{Field: field, Prev: *slot, Next: value}
	}
	return nil
}

func (a *StreamAggregator) assemble() *ChatCompletion {
	completion := &ChatCompletion{
		ID:                a.id,
		Object:            objectCompletion,
		Created:           a.created,
		Model:             a.model,
		ServiceTier:       a.serviceTier,
		SystemFingerprint: a.systemFingerprint,
		Choices:           make([]Choice, 0, len(a.choices)),
		Usage:             a.usage.clone(),
	}
	indexes := make([]int, 0, len(a.choices))
	for index := range a.choices {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	for _, index := range indexes {
		completion.Choices = append(completion.Choices, a.choices[index].snapshot())
	}
	return completion
}

// choiceState accumulates one choice index across chunks.
type choiceState struct {
	index   int
	role    string
	content strings.Builder
	refusal strings.Builder
	finish  FinishReason

	sawLogprobs bool
	lpContent   []TokenLogprob
	lpRefusal   []TokenLogprob

	// slots holds the choice's tool calls in creation order; byPos maps
	// a fragment's position in its delta list to the slot currently
	// streaming there.
	slots []*toolCallState
	byPos map[int]*toolCallState
}

func newChoiceState(index int) *choiceState {
	return &choiceState{index: index, byPos: make(map[int]*toolCallState)}
}

func (s *choiceState) apply(c *ChunkChoice) error {
	if c.Delta.Role != "" {
		if s.role != "" && s.role != c.Delta.Role {
			return &RoleConflictError{Index: s.index, Prev: s.role, Next: c.Delta.Role}
		}
		s.role = c.Delta.Role
	}
	if c.Delta.Content != nil {
		s.content.WriteString(*c.Delta.Content)
	}
	if c.Delta.Refusal != nil {
		s.refusal.WriteString(*c.Delta.Refusal)
	}
	for pos := range c.Delta.ToolCalls {
		delta := &c.Delta.ToolCalls[pos]
		if err := s.resolveSlot(pos, delta).merge(s.index, delta); err != nil {
			return err
		}
	}
	if c.FinishReason != nil && *c.FinishReason != "" {
		next := *c.FinishReason
		if s.finish != "" && s.finish != next {
			return &FinishReasonConflictError{Index: s.index, Prev: s.finish, Next: next}
		}
		s.finish = next
	}
	if c.Logprobs != nil {
		s.sawLogprobs = true
		s.lpContent = append(s.lpContent, c.Logprobs.Content...)
		s.lpRefusal = append(s.lpRefusal, c.Logprobs.Refusal...)
	}
	return nil
}

// resolveSlot finds the tool call a fragment belongs to. Fragments carry
// no ordinal, so an identifier match wins, then the fragment's position
// in its delta list. A fragment with a brand-new identifier adopts an
// identifier-less positional slot, otherwise it starts the next call.
// Parallel calls streamed entirely without identifiers cannot be told
// apart by position; a contradiction inside a slot surfaces as an error
// from merge rather than being guessed at.
func (s *choiceState) resolveSlot(pos int, d *ToolCallDelta) *toolCallState {
	if d.ID != "" {
		for _, slot := range s.slots {
			if slot.id == d.ID {
				return slot
			}
		}
	}
	if slot, ok := s.byPos[pos]; ok {
		if d.ID == "" || slot.id == "" {
			return slot
		}
	}
	slot := &toolCallState{ord: len(s.slots)}
	s.slots = append(s.slots, slot)
	s.byPos[pos] = slot
	return slot
}

func (s *choiceState) snapshot() Choice {
	message := ChatMessage{
		Role:    s.role,
		Content: s.content.String(),
		Refusal: s.refusal.String(),
	}
	if len(s.slots) > 0 {
		message.ToolCalls = make([]ToolCall, len(s.slots))
		for i, slot := range s.slots {
			message.ToolCalls[i] = ToolCall{
				ID:   slot.id,
				Type: slot.typ,
				Function: FunctionCall{
					Name:      slot.name,
					Arguments: slot.args.String(),
				},
			}
		}
	}
	choice := Choice{Index: s.index, Message: message, FinishReason: s.finish}
	if s.sawLogprobs {
		choice.Logprobs = &ChoiceLogprobs{
			Content: cloneTokenLogprobs(s.lpContent),
			Refusal: cloneTokenLogprobs(s.lpRefusal),
		}
	}
	return choice
}

// toolCallState is one in-progress tool call.
type toolCallState struct {
	ord  int
	id   string
	typ  string
	name string
	args strings.Builder
}

// merge folds a fragment into the slot. Identifier, type and function
// name are write-once (repeating the same value is fine); argument
// fragments concatenate in arrival order.
func (t *toolCallState) merge(choice int, d *ToolCallDelta) error {
	if err := t.set(&t.id, d.ID, choice, "id"); err != nil {
		return err
	}
	if err := t.set(&t.typ, d.Type, choice, "type"); err != nil {
		return err
	}
	if err := t.set(&t.name, d.Function.Name, choice, "function.name"); err != nil {
		return err
	}
	t.args.WriteString(d.Function.Arguments)
	return nil
}

func (t *toolCallState) set(slot *string, value string, choice int, field string) error {
	if value == "" {
		return nil
	}
	if *slot == "" {
		*slot = value
		return nil
	}
	if *slot != value {
		return &ToolCallMismatchError{Index: choice, Slot: t.ord, Field: field, Prev: *slot, Next: value}
	}
	return nil
}
