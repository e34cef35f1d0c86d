package features

import (
	"fmt"
	"strings"

	apperrors "credit-scoring/internal/common/errors"
)

// Reason classifies why an attribute was rejected.
type Reason string

const (
	ReasonMissing         Reason = "MISSING"
	ReasonWrongType       Reason = "WRONG_TYPE"
	ReasonOutOfDomain     Reason = "OUT_OF_DOMAIN"
	ReasonInvalidCategory Reason = "INVALID_CATEGORY"
)

// Violation is one rejected attribute.
type Violation struct {
	Field   string `json:"field"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// ValidationError reports a payload that does not conform to the feature
// schema. Field and Reason describe the first violation in canonical order.
type ValidationError struct {
	Field      string
	Reason     Reason
	Message    string
	Violations []Violation
}

func newValidationError(violations []Violation) *ValidationError {
	first := violations[0]
	return &ValidationError{
		Field:      first.Field,
		Reason:     first.Reason,
		Message:    first.Message,
		Violations: violations,
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ToStandardError converts the error for the transport layers.
func (e *ValidationError) ToStandardError() *apperrors.StandardError {
	details := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		details = append(details, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	stdErr := apperrors.NewFeatureValidationError(e.Field, string(e.Reason), strings.Join(details, "; ")).
		WithMetadata("fields", fields)
	stdErr.Cause = e
	return stdErr
}
