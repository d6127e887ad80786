package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlexKlim/llmchat-go/metrics"
	"github.com/AlexKlim/llmchat-go/sse"
)

// CreateChatCompletionStream sends req with streaming enabled and
// returns a ChatStream for reading the response chunk by chunk. Usage
// reporting is requested by default so the terminal chunk carries token
// counts; pass your own StreamOptions to override that.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req *ChatRequest) (*ChatStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body := *req
	body.Stream = true
	if body.StreamOptions == nil {
		body.StreamOptions = &StreamOptions{IncludeUsage: true}
	}

	cancel := context.CancelFunc(func() {})
	if c.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
	}

	logger := c.requestLogger(req)
	logger.Debug().Int("messages", len(req.Messages)).Msg("starting chat completion stream")

	httpReq, err := c.newRequest(ctx, &body)
	if err != nil {
		cancel()
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		cancel()
		metrics.RequestsTotal.WithLabelValues("stream", "error").Inc()
		return nil, fmt.Errorf("error making request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := readAPIError(resp)
		resp.Body.Close()
		cancel()
		metrics.RequestsTotal.WithLabelValues("stream", "error").Inc()
		logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("chat completion stream rejected")
		return nil, err
	}
	return &ChatStream{
		body:    resp.Body,
		cancel:  cancel,
		events:  sse.NewScanner(resp.Body),
		agg:     NewStreamAggregator(),
		logger:  logger,
		started: time.Now(),
	}, nil
}

// ChatStream reads a streamed chat completion chunk by chunk while
// rebuilding the full completion behind the scenes.
//
// Call Recv until it returns io.EOF, then Completion for the assembled
// result. Recv, Snapshot, Completion and Close belong to one goroutine.
type ChatStream struct {
	body    io.ReadCloser
	cancel  context.CancelFunc
	events  *sse.Scanner
	agg     *StreamAggregator
	logger  zerolog.Logger
	started time.Time

	chunks       int
	err          error
	finished     bool
	usageCounted bool
	closed       bool
}

// Recv returns the next chunk. Every chunk has already been folded into
// the running aggregate when Recv returns, so Snapshot reflects it. At
// the end of the stream Recv returns io.EOF; any other error repeats on
// subsequent calls.
func (s *ChatStream) Recv() (*ChatCompletionChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	data, err := s.events.Next()
	if err == io.EOF {
		s.err = io.EOF
		s.finish(nil)
		return nil, io.EOF
	}
	if err != nil {
		s.err = fmt.Errorf("error reading stream: %w", err)
		s.finish(s.err)
		return nil, s.err
	}
	var chunk ChatCompletionChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		s.err = fmt.Errorf("error unmarshalling chunk: %w", err)
		s.finish(s.err)
		return nil, s.err
	}
	if err := s.agg.Ingest(&chunk); err != nil {
		s.err = err
		s.finish(err)
		return nil, err
	}
	s.chunks++
	metrics.StreamChunksTotal.Inc()
	return &chunk, nil
}

// Snapshot returns an immutable copy of the completion as aggregated so
// far, for rendering partial progress. See StreamAggregator.Snapshot.
func (s *ChatStream) Snapshot() *ChatCompletion {
	return s.agg.Snapshot()
}

// Completion finalizes the aggregate and returns the reconstructed
// completion. Calling it before the stream is fully read is allowed;
// choices still in flight simply have no finish reason yet. A protocol
// violation seen during Recv comes back from here as well.
func (s *ChatStream) Completion() (*ChatCompletion, error) {
	completion, err := s.agg.Finalize()
	if err != nil {
		return nil, err
	}
	if completion.Usage != nil && !s.usageCounted {
		s.usageCounted = true
		metrics.ObserveUsage(completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	}
	return completion, nil
}

// Close releases the connection. It is safe to call more than once and
// before the stream is drained.
func (s *ChatStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	return s.body.Close()
}

// finish records the stream outcome the first time a terminal condition
// shows up.
func (s *ChatStream) finish(err error) {
	if s.finished {
		return
	}
	s.finished = true
	duration := time.Since(s.started)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("stream", "error").Inc()
		s.logger.Warn().
			Err(err).
			Dur("duration", duration).
			Int("chunks", s.chunks).
			Msg("chat completion stream failed")
		return
	}
	metrics.RequestsTotal.WithLabelValues("stream", "ok").Inc()
	metrics.RequestDuration.WithLabelValues("stream").Observe(duration.Seconds())
	if !s.events.Done() {
		s.logger.Warn().Int("chunks", s.chunks).Msg("stream ended without [DONE]")
	}
	s.logger.Debug().
		Dur("duration", duration).
		Int("chunks", s.chunks).
		Msg("chat completion stream finished")
}
