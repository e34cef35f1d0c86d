// internal/common/metrics/metrics.go
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_predictions_total",
			Help: "Total number of successful predictions by risk tier",
		},
		[]string{"channel", "tier"},
	)

	PredictionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_prediction_failures_total",
			Help: "Total number of failed predictions by error code",
		},
		[]string{"channel", "error_code"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "credit_prediction_duration_seconds",
			Help:    "Duration of a prediction in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"channel"},
	)

	PredictionsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "credit_predictions_in_flight",
			Help: "Number of predictions currently being processed",
		},
		[]string{"channel"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Channels label where a prediction came from.
const (
	ChannelHTTP   = "http"
	ChannelWorker = "worker"
)

// Recorder feeds prediction outcomes for one channel into the Prometheus vectors.
type Recorder struct {
	channel string
}

func NewRecorder(channel string) *Recorder {
	return &Recorder{channel: channel}
}

// ObservePrediction records one outcome. errorCode is empty on success.
func (r *Recorder) ObservePrediction(_ context.Context, tier, errorCode string, elapsed time.Duration) {
	PredictionDuration.WithLabelValues(r.channel).Observe(elapsed.Seconds())
	if errorCode != "" {
		PredictionFailures.WithLabelValues(r.channel, errorCode).Inc()
		return
	}
	PredictionsTotal.WithLabelValues(r.channel, tier).Inc()
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func (r *Recorder) TrackInFlight() func() {
	g := PredictionsInFlight.WithLabelValues(r.channel)
	g.Inc()
	return g.Dec
}
