// Package metrics exposes the chat store's Prometheus instrumentation. All
// series live under the chatstore namespace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chatstore"

func counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func histogram(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

var (
	RequestDuration = histogram("http", "request_duration_seconds",
		"HTTP request duration in seconds.",
		prometheus.DefBuckets, "method", "route", "status")
	RequestsTotal = counter("http", "requests_total",
		"HTTP requests served.", "method", "route", "status")

	// StoreMutationsTotal counts applied store mutations by operation.
	StoreMutationsTotal = counter("store", "mutations_total",
		"Store mutations applied.", "op")
	// StoreNoopsTotal counts mutations ignored because a reference did not resolve.
	StoreNoopsTotal = counter("store", "noops_total",
		"Store mutations ignored as no-ops.", "op")

	PersistenceWriteDuration = histogram("persistence", "write_duration_seconds",
		"Full snapshot write duration in seconds.",
		prometheus.ExponentialBuckets(0.0005, 2, 12), "backend")
	// PersistenceWriteFailures counts snapshot writes that failed and were swallowed.
	PersistenceWriteFailures = counter("persistence", "write_failures_total",
		"Snapshot writes that failed.", "backend")
	// PersistenceSeedsTotal counts loads that fell back to the seed state.
	PersistenceSeedsTotal = counter("persistence", "seed_loads_total",
		"Loads that fell back to the seed state.", "reason")

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "duration_seconds",
		Help:      "Search evaluation duration in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	LLMCompletionDuration = histogram("llm", "completion_duration_seconds",
		"Completion call duration in seconds.",
		[]float64{.5, 1, 2, 5, 10, 20, 30, 60, 120}, "provider", "status")
	LLMTokensTotal = counter("llm", "tokens_total",
		"Completion tokens by direction.", "model", "direction")

	// RepliesDroppedTotal counts replies whose conversation was deleted
	// before the completion resolved.
	RepliesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "replies",
		Name:      "dropped_total",
		Help:      "Replies dropped because their conversation was deleted.",
	})

	SSEConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sse",
		Name:      "connections_active",
		Help:      "Open server-sent event connections.",
	})

	// EventsPublishedTotal counts change events handed to JetStream by outcome.
	EventsPublishedTotal = counter("events", "published_total",
		"Change events published to NATS.", "type", "status")
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, route, status string, seconds float64) {
	RequestDuration.WithLabelValues(method, route, status).Observe(seconds)
	RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordMutation records an applied or ignored store mutation.
func RecordMutation(op string, applied bool) {
	if applied {
		StoreMutationsTotal.WithLabelValues(op).Inc()
		return
	}
	StoreNoopsTotal.WithLabelValues(op).Inc()
}

// RecordCompletion records a completion call.
func RecordCompletion(provider, status string, seconds float64) {
	LLMCompletionDuration.WithLabelValues(provider, status).Observe(seconds)
}

// RecordTokens adds token usage for a model.
func RecordTokens(model string, in, out int) {
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(in))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(out))
}

// TrackSSE counts an open SSE connection; call the returned func when it closes.
func TrackSSE() (done func()) {
	SSEConnectionsActive.Inc()
	return SSEConnectionsActive.Dec
}
