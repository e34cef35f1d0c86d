// Package model provides the scoring capability consumed by the pipeline and
// the sources it can be loaded from at startup.
package model

import (
	"context"
	"fmt"
	"math"

	"credit-scoring/internal/scoring/features"
	"credit-scoring/pkg/registry"
)

// Scorer maps a validated record to a creditworthiness score. Implementations
// must be safe for concurrent use and must not mutate shared state.
type Scorer interface {
	Score(ctx context.Context, record features.FeatureRecord) (float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, record features.FeatureRecord) (float64, error)

func (f ScorerFunc) Score(ctx context.Context, record features.FeatureRecord) (float64, error) {
	return f(ctx, record)
}

// Conventional credit score range.
const (
	MinScore = 300.0
	MaxScore = 850.0
)

// LinearModel evaluates a linear artifact. It is immutable once built.
type LinearModel struct {
	artifact registry.ModelArtifact
}

// NewLinearModel validates a and takes a private copy of its terms.
func NewLinearModel(a *registry.ModelArtifact) (*LinearModel, error) {
	if a == nil {
		return nil, fmt.Errorf("nil model artifact")
	}
	cp := *a
	if cp.Kind == "" {
		cp.Kind = registry.KindLinear
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	cp.Numeric = append([]registry.NumericTerm(nil), a.Numeric...)
	cp.Categorical = append([]registry.CategoricalTerm(nil), a.Categorical...)
	cp.Tags = append([]string(nil), a.Tags...)
	if a.Clip != nil {
		clip := *a.Clip
		cp.Clip = &clip
	}
	return &LinearModel{artifact: cp}, nil
}

// DefaultArtifact is the built-in model: the target formula of the synthetic
// training data, clipped to the conventional score range.
func DefaultArtifact() *registry.ModelArtifact {
	return &registry.ModelArtifact{
		Name:        "credit-linear",
		Version:     "builtin",
		Kind:        registry.KindLinear,
		Description: "income/10000*30 + (1-utilization)*300 + history/5 + payment and employment adjustments - 5*inquiries",
		Intercept:   300,
		Numeric: []registry.NumericTerm{
			{Feature: features.IncomeLevel, Weight: 30, Scale: 10000},
			{Feature: features.CreditUtilization, Weight: -300},
			{Feature: features.CreditHistoryLength, Weight: 1, Scale: 5},
			{Feature: features.NumCreditInquiries, Weight: -5},
		},
		Categorical: []registry.CategoricalTerm{
			{Feature: features.PaymentHistory, Value: "Good", Weight: 100},
			{Feature: features.PaymentHistory, Value: "Poor", Weight: -100},
			{Feature: features.EmploymentStatus, Value: "Employed", Weight: 50},
		},
		Clip: &registry.Clip{Min: MinScore, Max: MaxScore},
	}
}

// DefaultLinearModel builds the built-in model.
func DefaultLinearModel() *LinearModel {
	m, err := NewLinearModel(DefaultArtifact())
	if err != nil {
		panic(err)
	}
	return m
}

// Artifact returns a copy of the model's artifact.
func (m *LinearModel) Artifact() registry.ModelArtifact {
	cp := m.artifact
	cp.Numeric = append([]registry.NumericTerm(nil), m.artifact.Numeric...)
	cp.Categorical = append([]registry.CategoricalTerm(nil), m.artifact.Categorical...)
	return cp
}

// Score evaluates the linear terms and applies the clip, if any.
func (m *LinearModel) Score(_ context.Context, record features.FeatureRecord) (float64, error) {
	score := m.artifact.Intercept

	for _, t := range m.artifact.Numeric {
		v, ok := record.Numeric(t.Feature)
		if !ok {
			return 0, fmt.Errorf("numeric feature %q not in record", t.Feature)
		}
		scale := t.Scale
		if scale == 0 {
			scale = 1
		}
		score += t.Weight * v / scale
	}

	for _, t := range m.artifact.Categorical {
		v, ok := record.Category(t.Feature)
		if !ok {
			return 0, fmt.Errorf("categorical feature %q not in record", t.Feature)
		}
		if v == t.Value {
			score += t.Weight
		}
	}

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("model produced non-finite score %v", score)
	}
	if c := m.artifact.Clip; c != nil {
		score = math.Max(c.Min, math.Min(c.Max, score))
	}
	return score, nil
}
