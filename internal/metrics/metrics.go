package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry fetch outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	telemetryFetches *prometheus.CounterVec
	telemetryLatency prometheus.Histogram
	listSkipped      prometheus.Counter
	httpRequests     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		telemetryFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensors_telemetry_fetch_total",
			Help: "Telemetry fetches by outcome.",
		}, []string{"outcome"}),
		telemetryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sensors_telemetry_fetch_seconds",
			Help:    "Latency of telemetry fetches.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 13),
		}),
		listSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensors_list_skipped_total",
			Help: "Stored sensors left out of a listing because their view was invalid.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensors_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.telemetryFetches, m.telemetryLatency, m.listSkipped, m.httpRequests)
	return m
}

func (m *Metrics) ObserveTelemetry(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.telemetryFetches.WithLabelValues(outcome).Inc()
	m.telemetryLatency.Observe(d.Seconds())
}

func (m *Metrics) IncListSkipped() {
	if m == nil {
		return
	}
	m.listSkipped.Inc()
}

// ObserveHTTP counts one request. route is the route pattern, never the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
