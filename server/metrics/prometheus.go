// Package metrics provides Prometheus metrics export for the HealthLog server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "healthlog"

// PrometheusExporter exports server metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Series metrics
	seriesRequests *prometheus.CounterVec
	seriesLatency  *prometheus.HistogramVec

	// Alarm metrics
	alarmOps     *prometheus.CounterVec
	alarmFires   *prometheus.CounterVec
	alarmsActive prometheus.Gauge

	// Trigger registry metrics
	triggerErrors *prometheus.CounterVec

	// Nutrition lookup metrics
	nutritionLookups *prometheus.CounterVec
	nutritionLatency prometheus.Histogram
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.seriesRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "series",
			Name:      "requests_total",
			Help:      "Total number of series computations",
		},
		[]string{"category", "period", "status"},
	)

	e.seriesLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "series",
			Name:      "latency_seconds",
			Help:      "Series request latency in seconds, including the entry fetch",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"category"},
	)

	e.alarmOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alarm",
			Name:      "operations_total",
			Help:      "Total number of alarm operations",
		},
		[]string{"op", "status"},
	)

	e.alarmFires = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alarm",
			Name:      "fires_total",
			Help:      "Total number of trigger fires by outcome",
		},
		[]string{"outcome"},
	)

	e.alarmsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alarm",
			Name:      "alarms",
			Help:      "Number of alarms currently scheduled",
		},
	)

	e.triggerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trigger",
			Name:      "errors_total",
			Help:      "Total number of trigger registry failures",
		},
		[]string{"op"},
	)

	e.nutritionLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nutrition",
			Name:      "lookups_total",
			Help:      "Total number of calorie lookups by outcome",
		},
		[]string{"outcome"},
	)

	e.nutritionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "nutrition",
			Name:      "lookup_latency_seconds",
			Help:      "Calorie lookup latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
	)

	registry.MustRegister(
		e.seriesRequests,
		e.seriesLatency,
		e.alarmOps,
		e.alarmFires,
		e.alarmsActive,
		e.triggerErrors,
		e.nutritionLookups,
		e.nutritionLatency,
	)

	return e
}

// RecordSeriesRequest records a series computation.
func (e *PrometheusExporter) RecordSeriesRequest(category, period string, latency time.Duration, success bool) {
	e.seriesRequests.WithLabelValues(category, period, status(success)).Inc()
	e.seriesLatency.WithLabelValues(category).Observe(latency.Seconds())
}

// RecordAlarmOp records an alarm add, delete or toggle.
func (e *PrometheusExporter) RecordAlarmOp(op string, success bool) {
	e.alarmOps.WithLabelValues(op, status(success)).Inc()
}

// RecordAlarmFire records a trigger fire: delivered, skipped or failed.
func (e *PrometheusExporter) RecordAlarmFire(outcome string) {
	e.alarmFires.WithLabelValues(outcome).Inc()
}

// SetActiveAlarms sets the number of scheduled alarms.
func (e *PrometheusExporter) SetActiveAlarms(count int) {
	e.alarmsActive.Set(float64(count))
}

// RecordTriggerError records a failed register or cancel call.
func (e *PrometheusExporter) RecordTriggerError(op string) {
	e.triggerErrors.WithLabelValues(op).Inc()
}

// RecordNutritionLookup records a lookup outcome: found, not_found or error.
func (e *PrometheusExporter) RecordNutritionLookup(outcome string, latency time.Duration) {
	e.nutritionLookups.WithLabelValues(outcome).Inc()
	e.nutritionLatency.Observe(latency.Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler for the metrics endpoint.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Handler().ServeHTTP(w, r)
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
