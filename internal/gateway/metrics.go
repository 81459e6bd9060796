package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	connections prometheus.Gauge
}

// NewMetrics registers the gateway collectors on a private registry so
// several servers can coexist in one process.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "switchboard",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "RPC requests handled, by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "switchboard",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "RPC handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "switchboard",
			Subsystem: "gateway",
			Name:      "connections",
			Help:      "Open WebSocket connections.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.connections,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) observe(method, outcome string, seconds float64) {
	m.requests.WithLabelValues(method, outcome).Inc()
	m.duration.WithLabelValues(method).Observe(seconds)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
