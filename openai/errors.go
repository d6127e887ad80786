package openai

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyStream is returned by Finalize when not a single chunk was
	// ingested.
	ErrEmptyStream = errors.New("openai: no chunks ingested")

	// ErrAlreadyFinalized is returned by Ingest once Finalize has
	// produced a result; an aggregator serves exactly one stream.
	ErrAlreadyFinalized = errors.New("openai: aggregator already finalized")
)

// EnvelopeMismatchError reports a stream-level field that changed value
// between chunks of the same stream.
type EnvelopeMismatchError struct {
	Field string
	Prev  string
	Next  string
}

func (e *EnvelopeMismatchError) Error() string {
	return fmt.Sprintf("openai: envelope field %s changed mid-stream from %q to %q", e.Field, e.Prev, e.Next)
}

// RoleConflictError reports a choice whose role was introduced twice
// with different values.
type RoleConflictError struct {
	Index int
	Prev  string
	Next  string
}

func (e *RoleConflictError) Error() string {
	return fmt.Sprintf("openai: choice %d role changed from %q to %q", e.Index, e.Prev, e.Next)
}

// FinishReasonConflictError reports a choice that delivered two
// different finish reasons.
type FinishReasonConflictError struct {
	Index int
	Prev  FinishReason
	Next  FinishReason
}

func (e *FinishReasonConflictError) Error() string {
	return fmt.Sprintf("openai: choice %d finish reason changed from %q to %q", e.Index, e.Prev, e.Next)
}

// DuplicateUsageError reports a stream in which more than one chunk
// carried a usage block.
type DuplicateUsageError struct{}

func (e *DuplicateUsageError) Error() string {
	return "openai: usage reported by more than one chunk"
}

// ToolCallMismatchError reports a tool-call fragment that contradicts a
// field already recorded for its slot.
type ToolCallMismatchError struct {
	// Index is the choice the tool call belongs to, Slot its position
	// among the choice's calls.
	Index int
	Slot  int
	// Field is "id", "type" or "function.name".
	Field string
	Prev  string
	Next  string
}

func (e *ToolCallMismatchError) Error() string {
	return fmt.Sprintf("openai: choice %d tool call %d %s changed from %q to %q", e.Index, e.Slot, e.Field, e.Prev, e.Next)
}

// APIError is a non-2xx response from the provider, decoded from the
// standard error body when one was sent.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("openai: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("openai: %s (status %d)", e.Message, e.StatusCode)
}

// errorResponse is the error body shape OpenAI-compatible servers send.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
