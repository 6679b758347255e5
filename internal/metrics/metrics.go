// Package metrics provides Prometheus metrics for the prediction-model
// daemon: per-cycle training outcomes, inference volume, and model health.
// All metrics are exposed via the Prometheus endpoint served by the daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the daemon.
type Metrics struct {
	// Training metrics
	TrainCycles   prometheus.Counter   // Completed training cycles
	TrainFailures prometheus.Counter   // Training cycles that errored
	TrainDuration prometheus.Histogram // Wall time per training cycle
	EvalLogLoss   prometheus.Gauge     // Held-out log-loss of the latest model
	BestIteration prometheus.Gauge     // Boosting rounds kept after early stopping

	// Inference metrics
	Predictions     prometheus.Counter // Prediction calls served
	PredictFailures prometheus.Counter // Prediction calls that errored
	ModelAge        prometheus.Gauge   // Seconds since the active model was trained

	// Feed metrics
	CandlesReceived prometheus.Counter // Candle messages received from the feed
	WSReconnects    prometheus.Counter // WebSocket reconnections

	// System metrics
	ErrorsTotal prometheus.Counter // Errors encountered anywhere in the daemon
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for tests,
// avoiding duplicate-registration panics across test runs).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		TrainCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "train_cycles_total",
			Help: "Total number of completed training cycles",
		}),
		TrainFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "train_failures_total",
			Help: "Total number of training cycles that failed",
		}),
		TrainDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "train_duration_seconds",
			Help:    "Wall time per training cycle in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		EvalLogLoss: factory.NewGauge(prometheus.GaugeOpts{
			Name: "eval_log_loss",
			Help: "Held-out multi-class log-loss of the most recently trained model",
		}),
		BestIteration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "best_iteration",
			Help: "Boosting rounds kept after early stopping for the latest model",
		}),
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of prediction calls served",
		}),
		PredictFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "predict_failures_total",
			Help: "Total number of prediction calls that failed",
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the active model in seconds",
		}),
		CandlesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "candles_received_total",
			Help: "Total number of candle messages received from the feed",
		}),
		WSReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "ws_reconnects_total",
			Help: "Total number of WebSocket reconnections",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}
