// Package metrics registers the Prometheus metrics exported by the
// research gateway. Import it from the entry point so all metrics are
// registered before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests counts cache lookups labelled by result ("hit", "miss").
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researchgw_cache_requests_total",
			Help: "Total cache lookups by result.",
		},
		[]string{"result"},
	)

	// FetchRetries counts extra attempts made by the retry executor per resource.
	FetchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researchgw_fetch_retries_total",
			Help: "Total retry attempts beyond the first, per resource.",
		},
		[]string{"resource"},
	)

	// ProviderRequests counts chain invocations labelled by provider and
	// outcome ("success", "error", "circuit_open").
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researchgw_provider_requests_total",
			Help: "Total provider invocations by outcome.",
		},
		[]string{"provider", "status"},
	)

	// ProviderLatency observes per-provider call latency in seconds.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "researchgw_provider_latency_seconds",
			Help:    "Provider call latency in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	// CircuitBreakerState tracks per-resource breaker state as a gauge:
	// 0 = closed, 1 = open, 2 = half_open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "researchgw_circuit_breaker_state",
			Help: "Circuit breaker state per resource (0=closed 1=open 2=half_open).",
		},
		[]string{"resource"},
	)

	// ConfidenceLevels counts result envelopes by confidence level.
	ConfidenceLevels = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researchgw_confidence_level_total",
			Help: "Result envelopes by confidence level.",
		},
		[]string{"level"},
	)
)
