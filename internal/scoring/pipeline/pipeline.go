// Package pipeline composes feature normalization, scoring and tier
// classification into a single stateless predict operation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	apperrors "credit-scoring/internal/common/errors"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/scoring/features"
	"credit-scoring/internal/scoring/model"
)

// Observer receives the outcome of every prediction. errorCode is empty on
// success and tier is empty on failure.
type Observer interface {
	ObservePrediction(ctx context.Context, tier, errorCode string, elapsed time.Duration)
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	normalizer  *features.Normalizer
	coordinator *Coordinator
	observers   []Observer
	logger      logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver adds a prediction observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New builds a pipeline around the shared scorer.
func New(scorer model.Scorer, thresholds Thresholds, opts ...Option) (*Pipeline, error) {
	coordinator, err := NewCoordinator(scorer, thresholds)
	if err != nil {
		return nil, err
	}
	normalizer, err := features.NewNormalizer()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		normalizer:  normalizer,
		coordinator: coordinator,
		logger:      logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Predict normalizes raw, scores it and classifies the score. Failures are a
// *features.ValidationError, a *ScoringError, or an INTERNAL_ERROR
// StandardError for anything unexpected. Predict never panics.
func (p *Pipeline) Predict(ctx context.Context, raw map[string]interface{}) (res Result, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = apperrors.NewInternalError(fmt.Sprintf("predict panic: %v", r))
		}
		p.observe(ctx, res, err, time.Since(start))
	}()

	record, err := p.normalizer.Normalize(raw)
	if err != nil {
		return Result{}, err
	}
	return p.coordinator.Score(ctx, record)
}

// Thresholds returns the tier cut-offs in use.
func (p *Pipeline) Thresholds() Thresholds {
	return p.coordinator.Thresholds()
}

func (p *Pipeline) observe(ctx context.Context, res Result, err error, elapsed time.Duration) {
	tier, code := string(res.RiskCategory), ""
	if err != nil {
		tier, code = "", string(apperrors.Normalize(err).Code)
		p.logger.Debug("prediction failed", map[string]interface{}{
			"errorCode": code,
			"error":     err.Error(),
		})
	}
	for _, o := range p.observers {
		p.notify(ctx, o, tier, code, elapsed)
	}
}

// notify keeps a failing observer from reaching the caller.
func (p *Pipeline) notify(ctx context.Context, o Observer, tier, code string, elapsed time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("prediction observer panic", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
		}
	}()
	o.ObservePrediction(ctx, tier, code, elapsed)
}

// Response is the caller-facing shape of a prediction: either the score and
// tier, or an error message.
type Response struct {
	CreditScore  *float64 `json:"credit_score,omitempty" yaml:"credit_score,omitempty"`
	RiskCategory string   `json:"risk_category,omitempty" yaml:"risk_category,omitempty"`
	Error        string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// ToResponse shapes a Predict outcome. On failure no partial result is kept.
func ToResponse(res Result, err error) Response {
	if err != nil {
		stdErr := apperrors.Normalize(err)
		if stdErr.Code == apperrors.ErrCodeInternal {
			// internal details stay in the logs
			return Response{Error: stdErr.Message}
		}
		return Response{Error: stdErr.Error()}
	}
	score := res.CreditScore
	return Response{CreditScore: &score, RiskCategory: string(res.RiskCategory)}
}
