package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the domain counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics owns a private Prometheus registry and the service's collectors.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	registrations   *prometheus.CounterVec
	logins          *prometheus.CounterVec
	orphanedAssets  prometheus.Counter
	prunedAssets    prometheus.Counter
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by code.",
		}, []string{"method", "path", "code"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ims_registrations_total",
			Help: "Registration attempts by profile kind and outcome.",
		}, []string{"kind", "outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ims_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		orphanedAssets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ims_orphaned_assets_total",
			Help: "Uploaded avatars left behind by failed registrations.",
		}),
		prunedAssets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ims_pruned_assets_total",
			Help: "Unreferenced avatars deleted by the reconciliation sweep.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.errors,
		m.registrations,
		m.logins,
		m.orphanedAssets,
		m.prunedAssets,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest observes one finished request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(method, path, code).Inc()
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

// RecordRegistration counts a registration attempt.
func (m *Metrics) RecordRegistration(kind, outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(kind, outcome).Inc()
}

// RecordLogin counts a login attempt. outcome is a short reason such as "success".
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// RecordOrphanedAsset counts an asset left without an owning account.
func (m *Metrics) RecordOrphanedAsset() {
	if m == nil {
		return
	}
	m.orphanedAssets.Inc()
}

// RecordPrunedAssets counts assets removed by reconciliation.
func (m *Metrics) RecordPrunedAssets(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.prunedAssets.Add(float64(n))
}
