package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type domainErr struct{ field string }

func (d *domainErr) Error() string { return "bad " + d.field }

func (d *domainErr) ToStandardError() *StandardError {
	return NewFeatureValidationError(d.field, "MISSING", d.Error())
}

// wrappingErr standardizes to SCORING_FAILED while exposing its cause.
type wrappingErr struct{ cause error }

func (w *wrappingErr) Error() string { return "scoring failed: " + w.cause.Error() }

func (w *wrappingErr) Unwrap() error { return w.cause }

func (w *wrappingErr) ToStandardError() *StandardError {
	return NewScoringFailedError(w.cause)
}

func TestNormalize(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Normalize(nil))
	})

	t.Run("standard error passes through", func(t *testing.T) {
		in := NewScoringFailedError(stderrors.New("nan"))
		assert.Same(t, in, Normalize(in))
	})

	t.Run("wrapped standard error is unwrapped", func(t *testing.T) {
		in := NewScoringFailedError(stderrors.New("nan"))
		out := Normalize(fmt.Errorf("predict: %w", in))
		assert.Same(t, in, out)
	})

	t.Run("standardizer is converted", func(t *testing.T) {
		out := Normalize(&domainErr{field: "age"})
		require.NotNil(t, out)
		assert.Equal(t, ErrCodeValidationFailed, out.Code)
		assert.Equal(t, "age", out.Metadata["field"])
	})

	t.Run("outermost standardizer wins over wrapped standard error", func(t *testing.T) {
		cause := NewExternalServiceError("model-api", stderrors.New("connection refused"))
		out := Normalize(fmt.Errorf("score: %w", &wrappingErr{cause: cause}))
		require.NotNil(t, out)
		assert.Equal(t, ErrCodeScoringFailed, out.Code)
		assert.Equal(t, 0, GetRetryCount(out.Code))
	})

	t.Run("outermost standard error wins over wrapped standardizer", func(t *testing.T) {
		in := NewTimeoutError("scoring", &wrappingErr{cause: stderrors.New("deadline")})
		assert.Same(t, in, Normalize(in))
	})

	t.Run("joined errors", func(t *testing.T) {
		in := NewScoringFailedError(stderrors.New("nan"))
		out := Normalize(stderrors.Join(stderrors.New("other"), in))
		assert.Same(t, in, out)
	})

	t.Run("unknown error becomes internal", func(t *testing.T) {
		cause := stderrors.New("boom")
		out := Normalize(cause)
		assert.Equal(t, ErrCodeInternal, out.Code)
		assert.False(t, out.Retryable)
		assert.ErrorIs(t, out, cause)
	})
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationFailed, http.StatusBadRequest},
		{ErrCodeRequestMalformed, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeScoringFailed, http.StatusUnprocessableEntity},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("validation error is never retried", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewFeatureValidationError("age", "MISSING", "age: required attribute is missing"))
		assert.Equal(t, "VALIDATION_FAILED", bpmn.Code)
		assert.Equal(t, 0, bpmn.Retries)
		vars := bpmn.ToErrorVariables()
		assert.Equal(t, "age", vars["field"])
		assert.Equal(t, "VALIDATION_FAILED", vars["originalErrorCode"])
	})

	t.Run("external service error carries retries", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewExternalServiceError("model-api", stderrors.New("503")))
		assert.True(t, bpmn.Retryable)
		assert.Equal(t, 3, bpmn.Retries)
	})
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidationFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeRequestMalformed))
	assert.Equal(t, "MODEL", GetErrorCategory(ErrCodeScoringFailed))
	assert.Equal(t, "MODEL", GetErrorCategory(ErrCodeModelLoadFailed))
	assert.Equal(t, "DEPENDENCY", GetErrorCategory(ErrCodeTimeout))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
	assert.False(t, IsRetryableErrorCode(ErrCodeScoringFailed))
	assert.True(t, IsRetryableErrorCode(ErrCodeTimeout))
}

func TestStandardError_Message(t *testing.T) {
	err := NewFeatureValidationError("age", "MISSING", "age: required attribute is missing")
	assert.Equal(t, "Feature validation failed: age: required attribute is missing", err.Error())
	assert.Equal(t, "Unexpected error", (&StandardError{Message: "Unexpected error"}).Error())
	assert.Equal(t, 1, NewInternalError("x").WithMetadata("requestId", 1).Metadata["requestId"])
}
