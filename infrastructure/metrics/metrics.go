// Package metrics provides Prometheus metrics collection for the discovery
// engine.
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// Graph/discovery metrics
	GraphMutationsTotal  *prometheus.CounterVec
	CyclesDiscoveredTotal *prometheus.CounterVec
	CycleDiscoveryDuration *prometheus.HistogramVec
	CyclesAdmittedTotal  prometheus.Counter
	CacheEntriesGauge    *prometheus.GaugeVec

	// Webhook metrics
	WebhookDeliveryTotal    *prometheus.CounterVec
	WebhookDeliveryDuration *prometheus.HistogramVec

	// Rate limit metrics
	RateLimitRejectedTotal *prometheus.CounterVec

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a new Metrics instance with all collectors registered
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors",
			},
			[]string{"service", "type", "operation"},
		),

		GraphMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graph_mutations_total",
				Help: "Total number of mutations applied to tenant graphs",
			},
			[]string{"tenant", "operation"},
		),
		CyclesDiscoveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cycles_discovered_total",
				Help: "Total number of candidate cycles discovered",
			},
			[]string{"tenant"},
		),
		CycleDiscoveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cycle_discovery_duration_seconds",
				Help:    "Cycle discovery pass duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2, 5},
			},
			[]string{"tenant"},
		),
		CyclesAdmittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cycles_admitted_total",
				Help: "Total number of cycles admitted to the cache above the quality threshold",
			},
		),
		CacheEntriesGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cycle_cache_entries",
				Help: "Current number of cached cycles per tenant",
			},
			[]string{"tenant"},
		),

		WebhookDeliveryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_delivery_total",
				Help: "Total number of webhook delivery attempts",
			},
			[]string{"tenant", "status"},
		),
		WebhookDeliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webhook_delivery_duration_seconds",
				Help:    "Webhook delivery attempt duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30},
			},
			[]string{"tenant"},
		),

		RateLimitRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_rejected_total",
				Help: "Total number of requests rejected by the quota layer",
			},
			[]string{"tenant", "dimension"},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "service_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "service_info",
				Help: "Service information",
			},
			[]string{"service", "version", "environment"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RequestsInFlight,
			m.ErrorsTotal,
			m.GraphMutationsTotal,
			m.CyclesDiscoveredTotal,
			m.CycleDiscoveryDuration,
			m.CyclesAdmittedTotal,
			m.CacheEntriesGauge,
			m.WebhookDeliveryTotal,
			m.WebhookDeliveryDuration,
			m.RateLimitRejectedTotal,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0", environment()).Set(1)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(service, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordError records an error
func (m *Metrics) RecordError(service, errorType, operation string) {
	m.ErrorsTotal.WithLabelValues(service, errorType, operation).Inc()
}

// RecordGraphMutation records a graph mutation for a tenant.
func (m *Metrics) RecordGraphMutation(tenant, operation string) {
	m.GraphMutationsTotal.WithLabelValues(tenant, operation).Inc()
}

// RecordCycleDiscovery records the outcome of a discovery pass.
func (m *Metrics) RecordCycleDiscovery(tenant string, newCycles int, duration time.Duration) {
	m.CyclesDiscoveredTotal.WithLabelValues(tenant).Add(float64(newCycles))
	m.CycleDiscoveryDuration.WithLabelValues(tenant).Observe(duration.Seconds())
}

// RecordWebhookDelivery records a webhook delivery attempt outcome.
func (m *Metrics) RecordWebhookDelivery(tenant, status string, duration time.Duration) {
	m.WebhookDeliveryTotal.WithLabelValues(tenant, status).Inc()
	m.WebhookDeliveryDuration.WithLabelValues(tenant).Observe(duration.Seconds())
}

// RecordRateLimitRejected records a quota rejection.
func (m *Metrics) RecordRateLimitRejected(tenant, dimension string) {
	m.RateLimitRejectedTotal.WithLabelValues(tenant, dimension).Inc()
}

// UpdateUptime updates the service uptime
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

// IncrementInFlight increments the in-flight requests counter
func (m *Metrics) IncrementInFlight() {
	m.RequestsInFlight.Inc()
}

// DecrementInFlight decrements the in-flight requests counter
func (m *Metrics) DecrementInFlight() {
	m.RequestsInFlight.Dec()
}

func environment() string {
	if env := strings.TrimSpace(os.Getenv("ENVIRONMENT")); env != "" {
		return env
	}
	return "development"
}

// Enabled returns whether Prometheus metrics should be exposed.
//
// Defaults to enabled unless explicitly disabled via METRICS_ENABLED.
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	switch raw {
	case "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

// Global metrics instance
var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}
