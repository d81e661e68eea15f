// Package metrics exposes Prometheus instrumentation for the retrieval
// pipeline: per-lane latency and outcome counters, end-to-end latency, and
// circuit breaker state.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registered collectors.
type Metrics struct {
	registry *prometheus.Registry

	laneLatency      *prometheus.HistogramVec
	laneExecutions   *prometheus.CounterVec
	retrievalLatency prometheus.Histogram
	retrievals       *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
	cacheLookups     *prometheus.CounterVec
}

// New creates and registers the pipeline collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		laneLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fuse",
			Subsystem: "retrieval",
			Name:      "lane_latency_seconds",
			Help:      "Lane execution latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"lane", "status"}),
		laneExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fuse",
			Subsystem: "retrieval",
			Name:      "lane_executions_total",
			Help:      "Lane executions by outcome.",
		}, []string{"lane", "provider", "status", "fallback_used", "keyless", "timeout"}),
		retrievalLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fuse",
			Subsystem: "retrieval",
			Name:      "latency_seconds",
			Help:      "End-to-end retrieval latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fuse",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Retrievals by response method.",
		}, []string{"method"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fuse",
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"upstream"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fuse",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.laneLatency,
		m.laneExecutions,
		m.retrievalLatency,
		m.retrievals,
		m.breakerState,
		m.cacheLookups,
	)

	return m
}

// ObserveLane records one lane execution.
func (m *Metrics) ObserveLane(lane, provider, status string, fallbackUsed, keyless, timeout bool, latencyMs int64) {
	if provider == "" {
		provider = "none"
	}
	m.laneLatency.WithLabelValues(lane, status).Observe(float64(latencyMs) / 1000)
	m.laneExecutions.WithLabelValues(
		lane,
		provider,
		status,
		strconv.FormatBool(fallbackUsed),
		strconv.FormatBool(keyless),
		strconv.FormatBool(timeout),
	).Inc()
}

// ObserveRetrieval records one end-to-end retrieval.
func (m *Metrics) ObserveRetrieval(method string, latencyMs int64) {
	m.retrievalLatency.Observe(float64(latencyMs) / 1000)
	m.retrievals.WithLabelValues(method).Inc()
}

// SetBreakerState records a breaker state transition.
func (m *Metrics) SetBreakerState(upstream string, state float64) {
	m.breakerState.WithLabelValues(upstream).Set(state)
}

// ObserveCacheLookup records a response cache hit or miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
