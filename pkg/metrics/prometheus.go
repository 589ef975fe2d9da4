package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ingested    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	gapsFilled  *prometheus.CounterVec
	anomalies   *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ingested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airpulse_readings_ingested_total",
				Help: "Total number of readings ingested",
			},
			[]string{"source", "parameter"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		gapsFilled: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airpulse_gaps_filled_total",
				Help: "Total number of gaps filled by the imputation model",
			},
			[]string{"parameter"},
		),
		anomalies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airpulse_anomalies_total",
				Help: "Total number of points the ensemble flagged anomalous",
			},
			[]string{"parameter"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "airpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordIngest records one stored reading.
func (r *Recorder) RecordIngest(source, parameter string) {
	r.ingested.WithLabelValues(source, parameter).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordGapsFilled records filled gaps for a pollutant.
func (r *Recorder) RecordGapsFilled(parameter string, n int) {
	r.gapsFilled.WithLabelValues(parameter).Add(float64(n))
}

// RecordAnomalies records flagged points for a pollutant.
func (r *Recorder) RecordAnomalies(parameter string, n int) {
	r.anomalies.WithLabelValues(parameter).Add(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
