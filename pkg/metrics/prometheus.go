package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"StockCast/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions   *prometheus.CounterVec
	confidence    *prometheus.HistogramVec
	modelOutcomes *prometheus.CounterVec
	calibration   *prometheus.GaugeVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_predictions_total",
				Help: "Total number of predictions served by recommendation",
			},
			[]string{"symbol", "recommendation"},
		),
		confidence: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_prediction_confidence",
				Help:    "Confidence score of served predictions",
				Buckets: []float64{50, 55, 60, 65, 70, 75, 80, 85, 90, 95},
			},
			[]string{"symbol"},
		),
		modelOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_model_outcomes_total",
				Help: "Ensemble member outcomes by model kind",
			},
			[]string{"model", "result"},
		),
		calibration: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_calibration_accuracy",
				Help: "Latest calibration accuracy score for a symbol",
			},
			[]string{"symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordPrediction records a served prediction.
func (r *Recorder) RecordPrediction(symbol string, rec models.Recommendation, confidence float64) {
	r.predictions.WithLabelValues(symbol, string(rec)).Inc()
	r.confidence.WithLabelValues(symbol).Observe(confidence)
}

// RecordModelOutcome counts ok / unavailable / failed per model kind.
func (r *Recorder) RecordModelOutcome(kind models.ModelKind, result string) {
	r.modelOutcomes.WithLabelValues(string(kind), result).Inc()
}

// RecordCalibration sets the latest accuracy for a symbol.
func (r *Recorder) RecordCalibration(symbol string, accuracy float64) {
	r.calibration.WithLabelValues(symbol).Set(accuracy)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Noop discards all measurements.
type Noop struct{}

func (Noop) RecordPrediction(string, models.Recommendation, float64) {}
func (Noop) RecordModelOutcome(models.ModelKind, string)             {}
func (Noop) RecordCalibration(string, float64)                       {}
func (Noop) RecordError(string)                                      {}
func (Noop) RecordLastPrice(string, float64)                         {}
func (Noop) RecordLatency(string, float64)                           {}
