package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// sseServer streams the given lines as one server-sent event each.
func sseServer(t *testing.T, events []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("expected Accept: text/event-stream, got %s", r.Header.Get("Accept"))
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if body["stream"] != true {
			t.Error("expected stream: true in request body")
		}
		if opts, ok := body["stream_options"].(map[string]any); !ok || opts["include_usage"] != true {
			t.Error("expected stream_options.include_usage: true in request body")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("expected http.ResponseWriter to be http.Flusher")
		}
		for _, event := range events {
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}))
}

func streamClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{BaseURL: baseURL, APIKey: "test-api-key"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func streamRequest() *ChatRequest {
	return &ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []ChatMessage{{Role: "user", Content: "Say hello"}},
	}
}

func TestChatStreamRecv(t *testing.T) {
	server := sseServer(t, []string{
		`{"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":""},"finish_reason":null}]}`,
		`{"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"Hello"},"finish_reason":null}]}`,
		`{"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":" World"},"finish_reason":null}]}`,
		`{"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"!"},"finish_reason":null}]}`,
		`{"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`{"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o-mini","choices":[],"usage":{"prompt_tokens":17,"completion_tokens":10,"total_tokens":27}}`,
		`[DONE]`,
	})
	defer server.Close()

	client := streamClient(t, server.URL)
	stream, err := client.CreateChatCompletionStream(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}
	defer stream.Close()

	// Read the role chunk and the first content chunk, then check the
	// running aggregate reflects both.
	for i := 0; i < 2; i++ {
		if _, err := stream.Recv(); err != nil {
			t.Fatalf("unexpected error in stream: %v", err)
		}
	}
	snap := stream.Snapshot()
	if snap == nil || len(snap.Choices) != 1 {
		t.Fatalf("expected snapshot with one choice, got %+v", snap)
	}
	if snap.Choices[0].Message.Content != "Hello" {
		t.Errorf("expected snapshot content %q, got %q", "Hello", snap.Choices[0].Message.Content)
	}

	received := 2
	var fullContent strings.Builder
	fullContent.WriteString(snap.Choices[0].Message.Content)
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error in stream: %v", err)
		}
		received++
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != nil {
				fullContent.WriteString(*choice.Delta.Content)
			}
		}
	}
	if received != 6 {
		t.Errorf("expected 6 chunks, got %d", received)
	}
	if fullContent.String() != "Hello World!" {
		t.Errorf("expected content %q, got %q", "Hello World!", fullContent.String())
	}

	completion, err := stream.Completion()
	if err != nil {
		t.Fatalf("failed to finalize stream: %v", err)
	}
	if completion.ID != "chatcmpl-123" {
		t.Errorf("expected id chatcmpl-123, got %s", completion.ID)
	}
	if completion.Object != "chat.completion" {
		t.Errorf("expected object chat.completion, got %s", completion.Object)
	}
	if got := completion.Choices[0].Message.Content; got != "Hello World!" {
		t.Errorf("expected assembled content %q, got %q", "Hello World!", got)
	}
	if completion.Choices[0].FinishReason != FinishReasonStop {
		t.Errorf("expected finish reason stop, got %q", completion.Choices[0].FinishReason)
	}
	if completion.Usage == nil || completion.Usage.TotalTokens != 27 {
		t.Errorf("expected usage with 27 total tokens, got %+v", completion.Usage)
	}
}

func TestChatStreamAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key"}}`)
	}))
	defer server.Close()

	client := streamClient(t, server.URL)
	_, err := client.CreateChatCompletionStream(context.Background(), streamRequest())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", apiErr.StatusCode)
	}
	if apiErr.Code != "invalid_api_key" {
		t.Errorf("expected code invalid_api_key, got %q", apiErr.Code)
	}
	if apiErr.Message != "Incorrect API key provided" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

func TestChatStreamEarlyClose(t *testing.T) {
	server := sseServer(t, []string{
		`{"id":"chatcmpl-123","choices":[{"index":0,"delta":{"role":"assistant","content":"par"},"finish_reason":null}]}`,
		`{"id":"chatcmpl-123","choices":[{"index":0,"delta":{"content":"tial"},"finish_reason":null}]}`,
		`[DONE]`,
	})
	defer server.Close()

	client := streamClient(t, server.URL)
	stream, err := client.CreateChatCompletionStream(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}
	if _, err := stream.Recv(); err != nil {
		t.Fatalf("unexpected error in stream: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("failed to close stream: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}

	completion, err := stream.Completion()
	if err != nil {
		t.Fatalf("failed to finalize partial stream: %v", err)
	}
	if got := completion.Choices[0].Message.Content; got != "par" {
		t.Errorf("expected partial content %q, got %q", "par", got)
	}
	if completion.Choices[0].FinishReason != "" {
		t.Errorf("expected no finish reason, got %q", completion.Choices[0].FinishReason)
	}
}

func TestChatStreamBadChunk(t *testing.T) {
	server := sseServer(t, []string{
		`{"id":"chatcmpl-123","choices":[{"index":0,"delta":{"content":"ok"},"finish_reason":null}]}`,
		`{not json`,
		`[DONE]`,
	})
	defer server.Close()

	client := streamClient(t, server.URL)
	stream, err := client.CreateChatCompletionStream(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}
	defer stream.Close()

	if _, err := stream.Recv(); err != nil {
		t.Fatalf("unexpected error in stream: %v", err)
	}
	_, err = stream.Recv()
	if err == nil || !strings.Contains(err.Error(), "unmarshalling") {
		t.Fatalf("expected unmarshalling error, got %v", err)
	}
	if _, again := stream.Recv(); again != err {
		t.Errorf("expected the same error on repeat Recv, got %v", again)
	}

	// A malformed event is a transport problem, not a protocol violation;
	// the chunks read before it still aggregate.
	completion, cerr := stream.Completion()
	if cerr != nil {
		t.Fatalf("failed to finalize after bad chunk: %v", cerr)
	}
	if got := completion.Choices[0].Message.Content; got != "ok" {
		t.Errorf("expected content %q, got %q", "ok", got)
	}
}

func TestChatStreamProtocolViolation(t *testing.T) {
	server := sseServer(t, []string{
		`{"id":"chatcmpl-123","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"a"},"finish_reason":null}]}`,
		`{"id":"chatcmpl-123","model":"gpt-4o","choices":[{"index":0,"delta":{"content":"b"},"finish_reason":null}]}`,
		`[DONE]`,
	})
	defer server.Close()

	client := streamClient(t, server.URL)
	stream, err := client.CreateChatCompletionStream(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}
	defer stream.Close()

	if _, err := stream.Recv(); err != nil {
		t.Fatalf("unexpected error in stream: %v", err)
	}
	_, err = stream.Recv()
	var mismatch *EnvelopeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *EnvelopeMismatchError, got %v", err)
	}
	if mismatch.Field != "model" {
		t.Errorf("expected field model, got %q", mismatch.Field)
	}
	if _, cerr := stream.Completion(); !errors.As(cerr, &mismatch) {
		t.Errorf("expected the violation from Completion too, got %v", cerr)
	}
}

func TestChatStreamEndsWithoutDone(t *testing.T) {
	server := sseServer(t, []string{
		`{"id":"chatcmpl-123","choices":[{"index":0,"delta":{"content":"cut "},"finish_reason":null}]}`,
		`{"id":"chatcmpl-123","choices":[{"index":0,"delta":{"content":"off"},"finish_reason":null}]}`,
	})
	defer server.Close()

	client := streamClient(t, server.URL)
	stream, err := client.CreateChatCompletionStream(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}
	defer stream.Close()

	for {
		if _, err := stream.Recv(); err != nil {
			if err != io.EOF {
				t.Fatalf("expected io.EOF, got %v", err)
			}
			break
		}
	}
	completion, err := stream.Completion()
	if err != nil {
		t.Fatalf("failed to finalize truncated stream: %v", err)
	}
	if got := completion.Choices[0].Message.Content; got != "cut off" {
		t.Errorf("expected content %q, got %q", "cut off", got)
	}
}

func TestChatStreamRejectsInvalidRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the server")
	}))
	defer server.Close()

	client := streamClient(t, server.URL)
	if _, err := client.CreateChatCompletionStream(context.Background(), &ChatRequest{}); err == nil {
		t.Fatal("expected a validation error")
	}
}
