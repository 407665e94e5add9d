// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TurnsTotal tracks handled chat turns by routed intent.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total chat turns handled, by routed intent",
		},
		[]string{"intent"},
	)

	// ClassificationsTotal tracks intent classification outcomes, including
	// the error/fallback recovery paths.
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_classifications_total",
			Help: "Intent classification results",
		},
		[]string{"result"},
	)

	// LLMRequestDuration tracks completion-service call duration.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Completion service call duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"operation", "status"},
	)

	// LLMTokensTotal tracks total completion-service tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total completion-service tokens processed",
		},
		[]string{"model", "direction"},
	)

	// TicketsSubmittedTotal tracks ticket submissions by outcome.
	TicketsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_submitted_total",
			Help: "Ticket submissions to the ticketing system",
		},
		[]string{"outcome"},
	)

	// KBSearchesTotal tracks knowledge-base article searches.
	KBSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kb_searches_total",
			Help: "Knowledge base searches",
		},
		[]string{"status"},
	)

	// SessionsCreatedTotal tracks lazily created chat sessions.
	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sessions_created_total",
			Help: "Total chat sessions created",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records metrics for one completion-service call.
func RecordLLMCall(operation, status, model string, duration float64, tokensIn, tokensOut int) {
	LLMRequestDuration.WithLabelValues(operation, status).Observe(duration)
	if model != "" {
		LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
		LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
	}
}
