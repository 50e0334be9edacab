// Package metrics exposes the Prometheus collectors of the clinic server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they
// like. Every recording method is safe on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	EntitiesResolved  *prometheus.CounterVec
	AppointmentsSaved prometheus.Counter

	QueryDuration    *prometheus.HistogramVec
	RepositoryErrors *prometheus.CounterVec
}

func NewCollector(serviceName string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path"}),

		EntitiesResolved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "entities_resolved_total",
			Help:      "Doctors and patients resolved by natural key, split by whether a row was created.",
		}, []string{"entity", "outcome"}),

		AppointmentsSaved: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "appointments_saved_total",
			Help:      "Appointments committed to the store.",
		}),

		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "operation_duration_seconds",
			Help:      "Repository operation latency, connection acquisition included.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"operation"}),

		RepositoryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "operation_errors_total",
			Help:      "Failed repository operations by error kind.",
		}, []string{"operation", "kind"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveRequest(method, path, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.RequestsTotal.WithLabelValues(method, path, status).Inc()
	c.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (c *Collector) ObserveOperation(operation string, d time.Duration) {
	if c == nil {
		return
	}
	c.QueryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (c *Collector) EntityResolved(entity string, created bool) {
	if c == nil {
		return
	}
	outcome := "existing"
	if created {
		outcome = "created"
	}
	c.EntitiesResolved.WithLabelValues(entity, outcome).Inc()
}

func (c *Collector) AppointmentSaved() {
	if c == nil {
		return
	}
	c.AppointmentsSaved.Inc()
}

func (c *Collector) OperationFailed(operation, kind string) {
	if c == nil {
		return
	}
	c.RepositoryErrors.WithLabelValues(operation, kind).Inc()
}
