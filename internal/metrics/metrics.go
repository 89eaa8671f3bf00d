// Package metrics exposes catalog counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalog"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	ingest         *prometheus.CounterVec
	cleanup        *prometheus.CounterVec
	shardErrors    *prometheus.CounterVec
	gatherer       prometheus.Gatherer
}

// New registers the collectors on reg. When reg is also a Gatherer it backs Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Addon requests by route and status code.",
		}, []string{"route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Addon request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ingest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_items_total",
			Help:      "Ingested candidates by outcome.",
		}, []string{"outcome"}),
		cleanup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_attempts_total",
			Help:      "Hosted file cleanup attempts by resulting job status.",
		}, []string{"status"}),
		shardErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shard_errors_total",
			Help:      "Failed shard operations by shard index and operation.",
		}, []string{"shard", "op"}),
	}

	reg.MustRegister(m.requests, m.requestLatency, m.ingest, m.cleanup, m.shardErrors)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}

// IngestOutcome counts one ingest result (added, merged, skipped, failed).
func (m *Metrics) IngestOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ingest.WithLabelValues(outcome).Inc()
}

// CleanupOutcome counts one cleanup attempt by the job status it left behind.
func (m *Metrics) CleanupOutcome(status string) {
	if m == nil {
		return
	}
	m.cleanup.WithLabelValues(status).Inc()
}

// ShardError counts a failed operation against one shard.
func (m *Metrics) ShardError(shard int, op string) {
	if m == nil {
		return
	}
	m.shardErrors.WithLabelValues(strconv.Itoa(shard), op).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
