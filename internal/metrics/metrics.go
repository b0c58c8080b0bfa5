package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for PredictionsTotal.
const (
	OutcomeSuccess         = "success"
	OutcomeInvalidInput    = "invalid_input"
	OutcomeUnknownCategory = "unknown_category"
	OutcomeShapeMismatch   = "shape_mismatch"
	OutcomeModelError      = "model_error"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hdb_predictions_total",
			Help: "Total number of prediction requests by outcome",
		},
		[]string{"outcome"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hdb_prediction_duration_seconds",
			Help:    "Duration of the model call in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	SchemaColumns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hdb_schema_columns",
			Help: "Number of model input columns discovered at startup",
		},
	)
)
