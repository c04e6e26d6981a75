// Package metrics provides Prometheus metrics collection for the health
// risk prediction service: request volume and latency, per-target
// classifier failures, attribution tier usage, and input drift scores,
// all exposed on the metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction service.
type Metrics struct {
	PredictionsTotal       prometheus.Counter
	ValidationFailures     prometheus.Counter
	InternalErrors         prometheus.Counter
	TargetErrors           *prometheus.CounterVec
	AttributionFallbackUse prometheus.Counter
	AttributionUnavailable prometheus.Counter
	RequestLatency         prometheus.Histogram
	AttributionLatency     prometheus.Histogram
	BudgetExceeded         prometheus.Counter
	ModelAge               prometheus.Gauge
	DriftScore             *prometheus.GaugeVec
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, which keeps
// test instances isolated from the global registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of prediction responses served",
		}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "validation_failures_total",
			Help: "Total number of requests rejected for invalid input",
		}),
		InternalErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "internal_errors_total",
			Help: "Total number of requests failed by internal errors",
		}),
		TargetErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "target_errors_total",
			Help: "Total number of per-target classifier failures",
		}, []string{"target"}),
		AttributionFallbackUse: factory.NewCounter(prometheus.CounterOpts{
			Name: "attribution_fallback_use_total",
			Help: "Total number of times the sampling attribution fallback ran",
		}),
		AttributionUnavailable: factory.NewCounter(prometheus.CounterOpts{
			Name: "attribution_unavailable_total",
			Help: "Total number of times both attribution tiers failed",
		}),
		RequestLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "request_latency_seconds",
			Help:    "End-to-end prediction request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		AttributionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "attribution_latency_seconds",
			Help:    "Per-target attribution latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		BudgetExceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "latency_budget_exceeded_total",
			Help: "Total number of requests exceeding the soft latency budget",
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the loaded model bundle in seconds",
		}),
		DriftScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "feature_drift_score",
			Help: "Absolute shift of each feature's running mean from its training baseline",
		}, []string{"feature"}),
	}
}
