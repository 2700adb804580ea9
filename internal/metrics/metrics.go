// Package metrics registers the Prometheus collectors shared across the app.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_requests_total",
		Help: "Completion requests by provider and outcome.",
	}, []string{"provider", "outcome"})

	ParseFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_parse_fallbacks_total",
		Help: "Evaluations that needed a degraded parsing path.",
	}, []string{"stage"}) // plaintext | default
)
