// Package metrics exposes Prometheus instrumentation for the chat
// client. The collectors work without registration; call Register once
// at startup to expose them through the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts chat completion calls by mode
	// ("complete" or "stream") and outcome ("ok" or "error").
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmchat_requests_total",
			Help: "Chat completion requests by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	// StreamChunksTotal counts chunks received across all streams.
	StreamChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "llmchat_stream_chunks_total",
			Help: "Chunks received across all completion streams.",
		},
	)

	// TokensTotal counts tokens reported in usage blocks, by kind
	// ("prompt" or "completion").
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmchat_tokens_total",
			Help: "Tokens reported in usage blocks, by kind.",
		},
		[]string{"kind"},
	)

	// RequestDuration tracks wall time per request by mode. For streams
	// this spans request start to the last chunk.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llmchat_request_duration_seconds",
			Help:    "Chat completion duration by mode.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"mode"},
	)
)

// Register registers all collectors with the default registry. Calling
// it twice panics, as with any double registration.
func Register() {
	prometheus.MustRegister(
		RequestsTotal,
		StreamChunksTotal,
		TokensTotal,
		RequestDuration,
	)
}

// Handler serves the default registry, for mounting on a mux.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUsage adds a usage block's token counts to TokensTotal.
func ObserveUsage(promptTokens, completionTokens int) {
	TokensTotal.WithLabelValues("prompt").Add(float64(promptTokens))
	TokensTotal.WithLabelValues("completion").Add(float64(completionTokens))
}
