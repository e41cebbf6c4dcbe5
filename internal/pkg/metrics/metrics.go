// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	connections     prometheus.Gauge
	fanoutEmits     *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkchat",
			Name:      "requests_total",
			Help:      "Websocket requests by event and result.",
		}, []string{"event", "result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "linkchat",
			Name:      "request_duration_seconds",
			Help:      "Time spent in the request pipeline.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "linkchat",
			Name:      "connections",
			Help:      "Live websocket connections.",
		}),
		fanoutEmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkchat",
			Name:      "fanout_emits_total",
			Help:      "Events delivered to individual connections.",
		}, []string{"event"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.connections,
		m.fanoutEmits,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one pipeline request. result is "ok" or the error code.
func (m *Metrics) ObserveRequest(event, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(event, result).Inc()
	m.requestDuration.WithLabelValues(event).Observe(elapsed.Seconds())
}

// ConnectionOpened increments the live connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnectionClosed decrements the live connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// Emitted records n deliveries of event.
func (m *Metrics) Emitted(event string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.fanoutEmits.WithLabelValues(event).Add(float64(n))
}
