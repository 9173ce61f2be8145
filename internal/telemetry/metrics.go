// Package telemetry exposes Prometheus metrics for the reconciler.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "awsres"

// Metrics is the process metric set, registered on its own registry so
// tests can build as many as they like. A nil *Metrics is valid and records
// nothing; callers pass nil when metrics are disabled.
type Metrics struct {
	registry *prometheus.Registry

	steps    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   prometheus.Counter
	drift    prometheus.Counter
}

// New builds and registers the metric set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Engine steps by operation and resulting status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time of one engine step, remote calls included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Change events delivered to subscribers.",
		}),
		drift: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drift_detected_total",
			Help:      "Out-of-band drift detections.",
		}),
	}
	m.registry.MustRegister(m.steps, m.duration, m.events, m.drift)
	return m
}

// ObserveStep records one engine step.
func (m *Metrics) ObserveStep(operation, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveEvent records a delivered change event.
func (m *Metrics) ObserveEvent(drifted bool) {
	if m == nil {
		return
	}
	m.events.Inc()
	if drifted {
		m.drift.Inc()
	}
}

// Handler serves the metric set in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
