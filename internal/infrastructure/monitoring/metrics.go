package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Dispatch metrics
	DispatchCalls    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	DispatchErrors   *prometheus.CounterVec

	// Registry metrics
	RegisteredServices *prometheus.GaugeVec

	// Backend health metrics
	CacheLookups *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	gatherer prometheus.Gatherer
	stopOnce sync.Once
	stop     chan struct{}
}

// NewMetrics creates a collector registered on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWith(reg, reg)
}

// NewMetricsWith creates a collector on the given registerer/gatherer pair
func NewMetricsWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),
		gatherer:  gatherer,
		stop:      make(chan struct{}),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aikernel_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aikernel_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		DispatchCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aikernel_dispatch_calls_total",
				Help: "Total number of dispatched requests",
			},
			[]string{"capability", "service", "outcome"},
		),
		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aikernel_dispatch_duration_seconds",
				Help:    "Backend invocation duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"capability", "service"},
		),
		DispatchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aikernel_dispatch_errors_total",
				Help: "Total number of failed dispatches",
			},
			[]string{"capability", "service", "outcome"},
		),

		RegisteredServices: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aikernel_registered_services",
				Help: "Number of registered services per capability",
			},
			[]string{"capability"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aikernel_backend_cache_lookups_total",
				Help: "Backend response cache lookups",
			},
			[]string{"service", "result"},
		),

		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aikernel_backend_breaker_state",
				Help: "Backend circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"service"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "aikernel_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime refreshes the uptime gauge until Close
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		case <-m.stop:
			return
		}
	}
}

// Close stops background updates
func (m *Metrics) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Handler serves the collected metrics in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDispatch records one dispatcher outcome.
// Duration is only observed for calls that reached a backend.
func (m *Metrics) RecordDispatch(capability, service, outcome string, duration time.Duration) {
	m.DispatchCalls.WithLabelValues(capability, service, outcome).Inc()
	if outcome != "success" {
		m.DispatchErrors.WithLabelValues(capability, service, outcome).Inc()
	}
	if duration > 0 {
		m.DispatchDuration.WithLabelValues(capability, service).Observe(duration.Seconds())
	}
}

// SetRegisteredServices sets the number of services for a capability
func (m *Metrics) SetRegisteredServices(capability string, count int) {
	m.RegisteredServices.WithLabelValues(capability).Set(float64(count))
}

// RecordCacheLookup records a cache hit or miss
func (m *Metrics) RecordCacheLookup(service string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(service, result).Inc()
}

// SetBreakerState records the circuit breaker state of a backend
func (m *Metrics) SetBreakerState(service string, state int) {
	m.BreakerState.WithLabelValues(service).Set(float64(state))
}
