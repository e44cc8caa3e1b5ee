// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttempts counts single fetch attempts by outcome
	// (success, gone, retryable, failed).
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_fetch_attempts_total",
		Help: "Fetch attempts by outcome.",
	}, []string{"outcome"})
	// BrowserSessions counts headless browser fallback invocations by result.
	BrowserSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_browser_sessions_total",
		Help: "Headless browser fallback sessions by result.",
	}, []string{"result"})
	// NormalizedEvents counts canonical shot events produced by the normalizer.
	NormalizedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_normalized_events_total",
		Help: "Canonical shot events produced.",
	})
	// RunDuration observes end-to-end ingest run durations.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_run_duration_seconds",
		Help:    "End-to-end ingest run duration.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	// ItemsProcessed counts crawl items by phase and result.
	ItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_items_processed_total",
		Help: "Crawl items handled by phase and result.",
	}, []string{"phase", "result"})
	// HTTPRequestDuration observes operational API request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Operational API request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveHTTPRequest records one operational API request.
func ObserveHTTPRequest(method, route string, status int, seconds float64) {
	HTTPRequestDuration.WithLabelValues(method, route, statusClass(status)).Observe(seconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}
