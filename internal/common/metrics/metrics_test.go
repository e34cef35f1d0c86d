package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_ObservePrediction(t *testing.T) {
	r := NewRecorder("test")
	ctx := context.Background()

	lowBefore := testutil.ToFloat64(PredictionsTotal.WithLabelValues("test", "Low"))
	failBefore := testutil.ToFloat64(PredictionFailures.WithLabelValues("test", "VALIDATION_FAILED"))

	r.ObservePrediction(ctx, "Low", "", 3*time.Millisecond)
	r.ObservePrediction(ctx, "Low", "", time.Millisecond)
	r.ObservePrediction(ctx, "", "VALIDATION_FAILED", time.Millisecond)

	assert.Equal(t, lowBefore+2, testutil.ToFloat64(PredictionsTotal.WithLabelValues("test", "Low")))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(PredictionFailures.WithLabelValues("test", "VALIDATION_FAILED")))
}

func TestRecorder_TrackInFlight(t *testing.T) {
	r := NewRecorder("inflight")
	g := PredictionsInFlight.WithLabelValues("inflight")

	done := r.TrackInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(g))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(g))
}
