// Package metrics exposes Prometheus instrumentation for the agent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the agent's instrument set on a private registry. A nil
// *Metrics is valid and records nothing, so instrumentation stays
// optional in tests and library use.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	cacheHitsTotal   *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	queueDrained     *prometheus.CounterVec
	connectedClients prometheus.Gauge
}

// New builds the instrument set on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offlined",
		Name:      "requests_total",
		Help:      "Intercepted requests by traffic class and outcome.",
	}, []string{"class", "outcome"})

	m.cacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offlined",
		Name:      "cache_hits_total",
		Help:      "Requests served from a cache partition.",
	}, []string{"class"})

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "offlined",
		Name:      "request_duration_seconds",
		Help:      "Time to produce a response for an intercepted request.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"class"})

	m.queueDrained = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offlined",
		Name:      "queue_drained_total",
		Help:      "Queue items settled during drain cycles.",
	}, []string{"category", "result"})

	m.connectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "offlined",
		Name:      "connected_clients",
		Help:      "Foreground instances connected to the messaging channel.",
	})

	m.registry.MustRegister(
		m.requestsTotal,
		m.cacheHitsTotal,
		m.requestDuration,
		m.queueDrained,
		m.connectedClients,
	)
	return m
}

// Handler returns the scrape endpoint for the private registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one intercepted request.
func (m *Metrics) ObserveRequest(class, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(class, outcome).Inc()
	m.requestDuration.WithLabelValues(class).Observe(seconds)
}

// ObserveCacheHit records a request served from cache.
func (m *Metrics) ObserveCacheHit(class string) {
	if m == nil {
		return
	}
	m.cacheHitsTotal.WithLabelValues(class).Inc()
}

// ObserveDrain records settled queue items for one drain cycle.
func (m *Metrics) ObserveDrain(category, result string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.queueDrained.WithLabelValues(category, result).Add(float64(count))
}

// SetConnectedClients tracks the messaging channel population.
func (m *Metrics) SetConnectedClients(n int) {
	if m == nil {
		return
	}
	m.connectedClients.Set(float64(n))
}
