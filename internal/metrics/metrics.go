// Package metrics holds the Prometheus collectors for outbound API calls and
// pipeline outcomes. A nil *Collector is valid and records nothing.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records request and pipeline metrics. It is safe for concurrent use.
type Collector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	errorsTotal      *prometheus.CounterVec
	outcomesTotal    *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a collector on its own registry.
func New() *Collector {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates a collector registered on registry.
func NewWithRegistry(registry *prometheus.Registry) *Collector {
	factory := promauto.With(registry)
	return &Collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_requests_total",
				Help: "Total number of API requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shelf_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shelf_requests_in_flight",
				Help: "Number of API requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_request_errors_total",
				Help: "Requests that failed before a response was received",
			},
			[]string{"method", "endpoint"},
		),
		outcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_pipeline_outcomes_total",
				Help: "Settled pipeline invocations by outcome",
			},
			[]string{"outcome"},
		),
		registry: registry,
	}
}

// Registry exposes the underlying registry (nil for a nil collector).
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordRequest records request count and duration.
func (c *Collector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}

	status := strconv.Itoa(statusCode)
	c.requestsTotal.WithLabelValues(method, status, endpoint).Inc()
	c.requestDuration.WithLabelValues(method, status, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (c *Collector) RecordRequestStart(method, endpoint string) {
	if c == nil {
		return
	}
	c.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (c *Collector) RecordRequestEnd(method, endpoint string) {
	if c == nil {
		return
	}
	c.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordError counts a request that never produced a response.
func (c *Collector) RecordError(method, endpoint string) {
	if c == nil {
		return
	}
	c.errorsTotal.WithLabelValues(method, endpoint).Inc()
}

// RecordOutcome counts a pipeline settle (success, validation-error,
// transport-error, canceled).
func (c *Collector) RecordOutcome(outcome string) {
	if c == nil {
		return
	}
	c.outcomesTotal.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes every metric to path in the node_exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
