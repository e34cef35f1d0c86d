package pipeline

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	apperrors "credit-scoring/internal/common/errors"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/scoring/features"
	"credit-scoring/internal/scoring/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks & Helpers
// ==========================

type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Score(ctx context.Context, record features.FeatureRecord) (float64, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(float64), args.Error(1)
}

type outcome struct {
	tier, code string
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []outcome
}

func (o *recordingObserver) ObservePrediction(_ context.Context, tier, code string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome{tier: tier, code: code})
}

func scenarioPayload() map[string]interface{} {
	return map[string]interface{}{
		"income_level":          85000,
		"debt_level":            12000,
		"credit_utilization":    0.2,
		"credit_history_length": 120,
		"num_credit_accounts":   4,
		"num_credit_inquiries":  1,
		"age":                   35,
		"payment_history":       "Good",
		"employment_status":     "Employed",
		"education_level":       "Bachelor",
	}
}

func fixedScore(score float64) model.Scorer {
	return model.ScorerFunc(func(context.Context, features.FeatureRecord) (float64, error) {
		return score, nil
	})
}

func newPipeline(t *testing.T, scorer model.Scorer, opts ...Option) *Pipeline {
	t.Helper()
	p, err := New(scorer, DefaultThresholds(), append(opts, WithLogger(logger.NewTestLogger(t)))...)
	require.NoError(t, err)
	return p
}

// ==========================
// Tier Classification
// ==========================

func TestClassifyTier_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskTier
	}{
		{score: 850, want: TierLow},
		{score: 700, want: TierLow},
		{score: 699.999, want: TierMedium},
		{score: 640, want: TierMedium},
		{score: 639.999, want: TierHigh},
		{score: 300, want: TierHigh},
		{score: -10, want: TierHigh},
		{score: 1200, want: TierLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyTier(tt.score), "score %v", tt.score)
	}
}

func TestThresholds_Custom(t *testing.T) {
	th := Thresholds{LowRiskMin: 720, MediumRiskMin: 660}
	require.NoError(t, th.Validate())

	assert.Equal(t, TierMedium, th.Classify(700))
	assert.Equal(t, TierHigh, th.Classify(659.5))
	assert.Equal(t, TierLow, th.Classify(720))

	assert.Error(t, Thresholds{LowRiskMin: 640, MediumRiskMin: 640}.Validate())
}

// ==========================
// End-to-end Scenarios
// ==========================

func TestPredict_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		wantTier RiskTier
	}{
		{name: "scenario A", score: 720, wantTier: TierLow},
		{name: "scenario B", score: 650, wantTier: TierMedium},
		{name: "high risk", score: 500, wantTier: TierHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, fixedScore(tt.score))

			res, err := p.Predict(context.Background(), scenarioPayload())
			require.NoError(t, err)
			assert.Equal(t, Result{CreditScore: tt.score, RiskCategory: tt.wantTier}, res)

			resp := ToResponse(res, err)
			require.NotNil(t, resp.CreditScore)
			assert.Equal(t, tt.score, *resp.CreditScore)
			assert.Equal(t, string(tt.wantTier), resp.RiskCategory)
			assert.Empty(t, resp.Error)
		})
	}
}

func TestPredict_ScenarioC_MissingAgeNeverScores(t *testing.T) {
	scorer := new(MockScorer)
	p := newPipeline(t, scorer)

	payload := scenarioPayload()
	delete(payload, "age")

	res, err := p.Predict(context.Background(), payload)
	require.Error(t, err)
	assert.Equal(t, Result{}, res)

	var vErr *features.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "age", vErr.Field)
	assert.Equal(t, features.ReasonMissing, vErr.Reason)

	resp := ToResponse(res, err)
	assert.Nil(t, resp.CreditScore)
	assert.Empty(t, resp.RiskCategory)
	assert.Contains(t, resp.Error, "age")

	scorer.AssertNotCalled(t, "Score", mock.Anything, mock.Anything)
}

func TestPredict_ScenarioD_UnknownEmployment(t *testing.T) {
	scorer := new(MockScorer)
	p := newPipeline(t, scorer)

	payload := scenarioPayload()
	payload["employment_status"] = "Retired"

	_, err := p.Predict(context.Background(), payload)
	var vErr *features.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "employment_status", vErr.Field)
	assert.Equal(t, features.ReasonInvalidCategory, vErr.Reason)
	scorer.AssertNotCalled(t, "Score", mock.Anything, mock.Anything)
}

func TestPredict_ValidationNeverReachesScorer(t *testing.T) {
	mutations := map[string]func(p map[string]interface{}){
		"utilization above one":   func(p map[string]interface{}) { p["credit_utilization"] = 1.5 },
		"utilization below zero":  func(p map[string]interface{}) { p["credit_utilization"] = -0.1 },
		"unknown payment history": func(p map[string]interface{}) { p["payment_history"] = "Excellent" },
	}
	for _, name := range features.CanonicalOrder {
		name := name
		mutations["missing "+name] = func(p map[string]interface{}) { delete(p, name) }
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			scorer := new(MockScorer)
			p := newPipeline(t, scorer)

			payload := scenarioPayload()
			mutate(payload)

			_, err := p.Predict(context.Background(), payload)
			var vErr *features.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.Normalize(err).Code)
			scorer.AssertNotCalled(t, "Score", mock.Anything, mock.Anything)
		})
	}
}

// ==========================
// Scoring Failures
// ==========================

func TestPredict_ScorerFailure(t *testing.T) {
	cause := errors.New("model backend unavailable")
	scorer := new(MockScorer)
	scorer.On("Score", mock.Anything, mock.AnythingOfType("features.FeatureRecord")).Return(0.0, cause).Once()

	p := newPipeline(t, scorer)
	res, err := p.Predict(context.Background(), scenarioPayload())
	require.Error(t, err)
	assert.Equal(t, Result{}, res)

	var sErr *ScoringError
	require.True(t, errors.As(err, &sErr))
	assert.True(t, errors.Is(err, cause))

	stdErr := apperrors.Normalize(err)
	assert.Equal(t, apperrors.ErrCodeScoringFailed, stdErr.Code)
	assert.Contains(t, ToResponse(res, err).Error, "model backend unavailable")

	scorer.AssertNumberOfCalls(t, "Score", 1)
}

func TestPredict_NonFiniteScore(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		p := newPipeline(t, fixedScore(v))
		_, err := p.Predict(context.Background(), scenarioPayload())

		var sErr *ScoringError
		assert.True(t, errors.As(err, &sErr), "score %v", v)
	}
}

func TestPredict_ScorerPanicIsContained(t *testing.T) {
	p := newPipeline(t, model.ScorerFunc(func(context.Context, features.FeatureRecord) (float64, error) {
		panic("index out of range")
	}))

	var (
		res Result
		err error
	)
	assert.NotPanics(t, func() {
		res, err = p.Predict(context.Background(), scenarioPayload())
	})
	var sErr *ScoringError
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, Result{}, res)
}

func TestPredict_ScoreIsNotClamped(t *testing.T) {
	p := newPipeline(t, fixedScore(910))
	res, err := p.Predict(context.Background(), scenarioPayload())
	require.NoError(t, err)
	assert.Equal(t, 910.0, res.CreditScore)
	assert.Equal(t, TierLow, res.RiskCategory)
}

// ==========================
// Properties
// ==========================

func TestPredict_Idempotent(t *testing.T) {
	p := newPipeline(t, model.DefaultLinearModel())

	first, err := p.Predict(context.Background(), scenarioPayload())
	require.NoError(t, err)
	second, err := p.Predict(context.Background(), scenarioPayload())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, ToResponse(first, nil), ToResponse(second, nil))
}

func TestPredict_PassesCanonicalRecord(t *testing.T) {
	scorer := new(MockScorer)
	want := features.FeatureRecord{
		IncomeLevel:         85000,
		DebtLevel:           12000,
		CreditUtilization:   0.2,
		CreditHistoryLength: 120,
		NumCreditAccounts:   4,
		NumCreditInquiries:  1,
		Age:                 35,
		PaymentHistory:      "Good",
		EmploymentStatus:    "Employed",
		EducationLevel:      "Bachelor",
	}
	scorer.On("Score", mock.Anything, want).Return(700.0, nil)

	payload := scenarioPayload()
	payload["favourite_colour"] = "teal"

	p := newPipeline(t, scorer)
	res, err := p.Predict(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, TierLow, res.RiskCategory)
	scorer.AssertExpectations(t)
}

func TestPredict_ConcurrentRequestsShareScorer(t *testing.T) {
	p := newPipeline(t, model.DefaultLinearModel())
	want, err := p.Predict(context.Background(), scenarioPayload())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.Predict(context.Background(), scenarioPayload())
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestPredict_NotifiesObservers(t *testing.T) {
	obs := &recordingObserver{}
	p := newPipeline(t, fixedScore(650), WithObserver(obs))

	_, err := p.Predict(context.Background(), scenarioPayload())
	require.NoError(t, err)

	bad := scenarioPayload()
	bad["age"] = "thirty"
	_, err = p.Predict(context.Background(), bad)
	require.Error(t, err)

	assert.Equal(t, []outcome{
		{tier: "Medium"},
		{code: string(apperrors.ErrCodeValidationFailed)},
	}, obs.outcomes)
}

type panickingObserver struct{}

func (panickingObserver) ObservePrediction(context.Context, string, string, time.Duration) {
	panic("exporter closed")
}

func TestPredict_ObserverPanicIsContained(t *testing.T) {
	rec := &recordingObserver{}
	p := newPipeline(t, fixedScore(720), WithObserver(panickingObserver{}), WithObserver(rec))

	var (
		res Result
		err error
	)
	assert.NotPanics(t, func() {
		res, err = p.Predict(context.Background(), scenarioPayload())
	})
	require.NoError(t, err)
	assert.Equal(t, TierLow, res.RiskCategory)
	assert.Equal(t, []outcome{{tier: "Low"}}, rec.outcomes)
}

func TestPredict_ScorerStandardErrorReportedAsScoringFailure(t *testing.T) {
	p := newPipeline(t, model.ScorerFunc(func(context.Context, features.FeatureRecord) (float64, error) {
		return 0, apperrors.NewExternalServiceError("model-api", errors.New("connection refused"))
	}))

	_, err := p.Predict(context.Background(), scenarioPayload())
	require.Error(t, err)

	var sErr *ScoringError
	require.True(t, errors.As(err, &sErr))

	stdErr := apperrors.Normalize(err)
	assert.Equal(t, apperrors.ErrCodeScoringFailed, stdErr.Code)
	assert.Equal(t, 422, apperrors.HTTPStatus(stdErr.Code))
	assert.Equal(t, 0, apperrors.ConvertToBPMNError(stdErr).Retries)
}

func TestToResponse_HidesInternalDetails(t *testing.T) {
	resp := ToResponse(Result{}, errors.New("nil pointer dereference at pipeline.go:42"))
	assert.Equal(t, "Unexpected error", resp.Error)
	assert.Nil(t, resp.CreditScore)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(nil, DefaultThresholds())
	assert.Error(t, err)

	_, err = New(fixedScore(1), Thresholds{LowRiskMin: 600, MediumRiskMin: 650})
	assert.Error(t, err)
}
