package pipeline

import (
	"context"
	"fmt"
	"math"

	apperrors "credit-scoring/internal/common/errors"
	"credit-scoring/internal/scoring/features"
	"credit-scoring/internal/scoring/model"
)

// ScoringError reports that the scorer could not produce a usable result for
// a valid record.
type ScoringError struct {
	Cause error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failed: %v", e.Cause)
}

func (e *ScoringError) Unwrap() error {
	return e.Cause
}

// ToStandardError converts the error for the transport layers.
func (e *ScoringError) ToStandardError() *apperrors.StandardError {
	return apperrors.NewScoringFailedError(e.Cause)
}

// Result is the scored outcome of one request.
type Result struct {
	CreditScore  float64  `json:"credit_score"`
	RiskCategory RiskTier `json:"risk_category"`
}

// Coordinator invokes the shared scorer and classifies its output. It holds no
// mutable state.
type Coordinator struct {
	scorer     model.Scorer
	thresholds Thresholds
}

func NewCoordinator(scorer model.Scorer, thresholds Thresholds) (*Coordinator, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Coordinator{scorer: scorer, thresholds: thresholds}, nil
}

// Score runs the scorer once. The score is not clamped here; a non-finite
// score or any scorer failure, including a panic, is a *ScoringError.
func (c *Coordinator) Score(ctx context.Context, record features.FeatureRecord) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = &ScoringError{Cause: fmt.Errorf("scorer panic: %v", r)}
		}
	}()

	score, err := c.scorer.Score(ctx, record)
	if err != nil {
		return Result{}, &ScoringError{Cause: err}
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return Result{}, &ScoringError{Cause: fmt.Errorf("scorer returned non-finite value %v", score)}
	}

	return Result{
		CreditScore:  score,
		RiskCategory: c.thresholds.Classify(score),
	}, nil
}

// Thresholds returns the tier cut-offs in use.
func (c *Coordinator) Thresholds() Thresholds {
	return c.thresholds
}
