// Package observability exposes the Prometheus instrumentation for the
// procurement service. All collectors live on a dedicated registry so the
// /metrics endpoint does not leak default process collectors from linked-in
// libraries.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the service collectors and their registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	overloads      *prometheus.CounterVec
	catalogReloads prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procurement_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "procurement_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procurement_cache_hits_total",
			Help: "Response cache hits by operation.",
		}, []string{"operation"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procurement_cache_misses_total",
			Help: "Response cache misses by operation.",
		}, []string{"operation"}),
		overloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procurement_simulated_overloads_total",
			Help: "Simulated upstream overloads injected, by operation.",
		}, []string{"operation"}),
		catalogReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "procurement_catalog_reloads_total",
			Help: "Successful catalog snapshot reloads.",
		}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.cacheHits,
		m.cacheMisses,
		m.overloads,
		m.catalogReloads,
	)

	return m
}

// Handler serves the registry in the standard exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one completed HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// CatalogReloaded counts a successful snapshot swap.
func (m *Metrics) CatalogReloaded() {
	m.catalogReloads.Inc()
}

// CacheHit implements procurement.Recorder.
func (m *Metrics) CacheHit(operation string) {
	m.cacheHits.WithLabelValues(operation).Inc()
}

// CacheMiss implements procurement.Recorder.
func (m *Metrics) CacheMiss(operation string) {
	m.cacheMisses.WithLabelValues(operation).Inc()
}

// OverloadInjected implements procurement.Recorder.
func (m *Metrics) OverloadInjected(operation string) {
	m.overloads.WithLabelValues(operation).Inc()
}
