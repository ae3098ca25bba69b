// Package metrics exposes Prometheus instrumentation for rating calculations
// and reference lookups on a dedicated registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Calculation outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeInvalidInput = "invalid_input"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
)

// Lookup tiers
const (
	TierMemory = "memory"
	TierRedis  = "redis"
	TierStore  = "store"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	calculations *prometheus.CounterVec
	duration     prometheus.Histogram
	lookups      *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
	httpRequests *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		calculations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdr_calculations_total",
				Help: "Total number of rating calculations by outcome",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pdr_calculation_duration_seconds",
				Help:    "Duration of rating calculations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
		),
		lookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdr_reference_lookups_total",
				Help: "Reference data lookups by table and the tier that answered",
			},
			[]string{"table", "tier"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pdr_circuit_breaker_open",
				Help: "1 when the named circuit breaker is open",
			},
			[]string{"name"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdr_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// ObserveCalculation records one calculation
func (m *Metrics) ObserveCalculation(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calculations.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// RecordLookup counts a lookup answered by tier
func (m *Metrics) RecordLookup(table, tier string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(table, tier).Inc()
}

// SetBreakerOpen reports the breaker state
func (m *Metrics) SetBreakerOpen(name string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.breakerState.WithLabelValues(name).Set(v)
}

// RecordRequest counts one HTTP request
func (m *Metrics) RecordRequest(method, route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
