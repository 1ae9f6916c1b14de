// Package metrics exposes the catalog's Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. A nil
// *Collector is valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Catalog metrics
	EntityOperations *prometheus.CounterVec
	ChangeEvents     *prometheus.CounterVec

	// Store metrics
	TxDuration *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	entityOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_operations_total",
			Help:      "Total number of entity repository operations",
		},
		[]string{"entity", "operation", "status"},
	)

	changeEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_total",
			Help:      "Total number of change events emitted",
		},
		[]string{"entity", "event_type"},
	)

	txDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tx_duration_seconds",
			Help:      "Repository transaction duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"entity", "operation"},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		entityOperations,
		changeEvents,
		txDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry:         registry,
		HTTPRequests:     httpRequests,
		HTTPDuration:     httpDuration,
		EntityOperations: entityOperations,
		ChangeEvents:     changeEvents,
		TxDuration:       txDuration,
	}
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveOperation records one repository operation and its outcome
func (c *Collector) ObserveOperation(entity, operation string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.EntityOperations.WithLabelValues(entity, operation, status).Inc()
	c.TxDuration.WithLabelValues(entity, operation).Observe(duration.Seconds())
}

// ObserveEvent counts an emitted change event
func (c *Collector) ObserveEvent(entity, eventType string) {
	if c == nil {
		return
	}
	c.ChangeEvents.WithLabelValues(entity, eventType).Inc()
}

// Registry returns the Prometheus registry for this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
