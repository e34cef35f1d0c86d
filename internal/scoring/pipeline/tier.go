package pipeline

import "fmt"

// RiskTier is the discrete classification of a score.
type RiskTier string

const (
	TierLow    RiskTier = "Low"
	TierMedium RiskTier = "Medium"
	TierHigh   RiskTier = "High"
)

// Thresholds are the inclusive lower bounds of the Low and Medium tiers.
type Thresholds struct {
	LowRiskMin    float64
	MediumRiskMin float64
}

// DefaultThresholds returns the standard 700/640 cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{LowRiskMin: 700, MediumRiskMin: 640}
}

func (t Thresholds) Validate() error {
	if t.MediumRiskMin >= t.LowRiskMin {
		return fmt.Errorf("medium risk minimum %v must be below low risk minimum %v", t.MediumRiskMin, t.LowRiskMin)
	}
	return nil
}

// Classify maps a score to its tier, evaluated high to low with closed-open bounds.
func (t Thresholds) Classify(score float64) RiskTier {
	switch {
	case score >= t.LowRiskMin:
		return TierLow
	case score >= t.MediumRiskMin:
		return TierMedium
	default:
		return TierHigh
	}
}

// ClassifyTier classifies with DefaultThresholds.
func ClassifyTier(score float64) RiskTier {
	return DefaultThresholds().Classify(score)
}
