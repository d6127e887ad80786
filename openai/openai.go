// Package openai is a client for OpenAI-compatible chat completion
// APIs. It covers the plain request/response call and the streaming
// variant, where a StreamAggregator rebuilds the full completion from
// the chunk stream while the caller watches tokens arrive.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AlexKlim/llmchat-go/metrics"
)

const defaultBaseURL = "https://api.openai.com/v1"

// maxErrorBody caps how much of an error response is read back.
const maxErrorBody = 32 * 1024

// Config carries the connection settings for a Client.
type Config struct {
	// BaseURL points at an OpenAI-compatible API root. Defaults to the
	// OpenAI endpoint.
	BaseURL string
	// APIKey is sent as a bearer token when non-empty. Local servers
	// often need none.
	APIKey string
	// Headers are extra headers set on every request, e.g. for
	// organization or project scoping.
	Headers map[string]string
	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
	// Timeout bounds a whole call, including reading a stream to its
	// end. Zero leaves the caller's context in charge.
	Timeout time.Duration
}

// WithDefaults returns a copy of the config with zero fields filled in.
func (c Config) WithDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return c
}

// Validate checks the config for obvious mistakes.
func (c Config) Validate() error {
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// Client sends chat completion requests to one endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

// NewClient builds a Client from cfg. The logger receives request and
// stream diagnostics; pass zerolog.Nop() for silence.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.WithDefaults()
	return &Client{
		cfg:    cfg,
		http:   cfg.HTTPClient,
		logger: logger.With().Str("component", "llmchat").Logger(),
	}, nil
}

// CreateChatCompletion sends req and returns the completed response.
// Non-2xx responses come back as *APIError.
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatCompletion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	body := *req
	body.Stream = false
	body.StreamOptions = nil

	logger := c.requestLogger(req)
	start := time.Now()
	logger.Debug().Int("messages", len(req.Messages)).Msg("sending chat completion request")

	httpReq, err := c.newRequest(ctx, &body)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("complete", "error").Inc()
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.RequestsTotal.WithLabelValues("complete", "error").Inc()
		err := readAPIError(resp)
		logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("chat completion rejected")
		return nil, err
	}
	var completion ChatCompletion
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		metrics.RequestsTotal.WithLabelValues("complete", "error").Inc()
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	metrics.RequestsTotal.WithLabelValues("complete", "ok").Inc()
	metrics.RequestDuration.WithLabelValues("complete").Observe(time.Since(start).Seconds())
	if completion.Usage != nil {
		metrics.ObserveUsage(completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	}
	logger.Info().
		Dur("duration", time.Since(start)).
		Int("choices", len(completion.Choices)).
		Msg("chat completion finished")
	return &completion, nil
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) requestLogger(req *ChatRequest) zerolog.Logger {
	return c.logger.With().
		Str("request_id", uuid.NewString()).
		Str("model", req.Model).
		Logger()
}

func (c *Client) newRequest(ctx context.Context, body *ChatRequest) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error encoding request: %w", err)
	}
	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

// readAPIError turns a non-2xx response into an *APIError, falling back
// to the raw body when it is not the standard error shape.
func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode}
	}
	var wire errorResponse
	if err := json.Unmarshal(body, &wire); err != nil || wire.Error.Message == "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    truncate(strings.TrimSpace(string(body)), 256),
		}
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Type:       wire.Error.Type,
		Code:       wire.Error.Code,
		Message:    wire.Error.Message,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
