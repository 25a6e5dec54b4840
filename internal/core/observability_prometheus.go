package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsRecorder counts and times store operations on its own
// registry, labelled by operation and status.
type PrometheusMetricsRecorder struct {
	registry *prometheus.Registry
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the simago collectors on a fresh
// registry.
func NewPrometheusMetricsRecorder() *PrometheusMetricsRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &PrometheusMetricsRecorder{
		registry: reg,
		total: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simago",
			Name:      "operations_total",
			Help:      "Population store operations by outcome.",
		}, []string{"operation", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "simago",
			Name:      "operation_duration_seconds",
			Help:      "Latency of population store operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"operation"}),
	}
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.total.WithLabelValues(operation, status).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Registry exposes the registry for HTTP exposition or tests.
func (r *PrometheusMetricsRecorder) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile writes the current metrics in the node-exporter textfile
// format.
func (r *PrometheusMetricsRecorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
