package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_ExportsPredictionInstruments(t *testing.T) {
	reg := promclient.NewRegistry()
	obs, err := New("credit-scoring-test", reg)
	require.NoError(t, err)
	defer obs.Shutdown()

	ctx := context.Background()
	obs.ObservePrediction(ctx, "Low", "", 2*time.Millisecond)
	obs.ObservePrediction(ctx, "", "SCORING_FAILED", time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var counterTotal float64
	var sawHistogram bool
	for _, mf := range families {
		switch {
		case strings.HasPrefix(mf.GetName(), "predictions_processed"):
			for _, m := range mf.GetMetric() {
				counterTotal += m.GetCounter().GetValue()
			}
		case strings.HasPrefix(mf.GetName(), "predictions_duration"):
			sawHistogram = true
		}
	}
	assert.Equal(t, 2.0, counterTotal)
	assert.True(t, sawHistogram)
}
