// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	// RecommendationsServed counts recommendation responses by ranking mode
	// ("guest", "cold_start", "personalized") and cache outcome.
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextwatch_recommendations_served_total",
			Help: "Total number of recommendation responses served",
		},
		[]string{"mode", "cache"},
	)

	// ReasonsGenerated counts reasons by source ("generated", "fallback", "default").
	ReasonsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextwatch_reasons_total",
			Help: "Total number of recommendation reasons by source",
		},
		[]string{"source"},
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextwatch_provider_requests_total",
			Help: "Total number of outbound provider requests by result",
		},
		[]string{"provider", "result"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nextwatch_provider_request_duration_seconds",
			Help:    "Duration of outbound provider requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nextwatch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextwatch_cache_lookups_total",
			Help: "Total number of Redis cache lookups by result",
		},
		[]string{"cache", "result"},
	)

	CatalogSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nextwatch_catalog_titles_synced_total",
			Help: "Total number of titles stored from the metadata provider",
		},
	)
)

// BreakerStateValue maps a breaker state to its gauge value.
func BreakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
