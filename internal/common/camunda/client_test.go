package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"credit-scoring/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRetryClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RetryConfig: &RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
	}}
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"read: connection reset by peer", true},
		{"NOT_FOUND: process not found", false},
		{"invalid argument", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryableZeebeError(stderrors.New(tt.msg)), tt.msg)
	}
}

func TestMapZeebeError(t *testing.T) {
	err := mapZeebeError(stderrors.New("deadline exceeded"), "topology", 2)
	stdErr := errors.Normalize(err)
	assert.Equal(t, errors.ErrCodeTimeout, stdErr.Code)
	assert.Contains(t, stdErr.Details, "after 3 attempts")

	err = mapZeebeError(stderrors.New("connection refused"), "topology", 0)
	assert.Equal(t, errors.ErrCodeExternalService, errors.Normalize(err).Code)
}

func TestExecuteWithRetry_RecoversFromTransientErrors(t *testing.T) {
	c := newRetryClient(3)
	calls := 0

	result, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, stderrors.New("unavailable")
		}
		return "ok", nil
	}, "topology")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	c := newRetryClient(3)
	calls := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("permission denied")
	}, "topology")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, errors.ErrCodeExternalService, errors.Normalize(err).Code)
}

func TestExecuteWithRetry_GivesUp(t *testing.T) {
	c := newRetryClient(2)
	calls := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("connection refused")
	}, "topology")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_HonoursCancellation(t *testing.T) {
	c := newRetryClient(5)
	c.config.RetryConfig.BaseDelay = time.Second
	c.config.RetryConfig.MaxDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteWithRetry(ctx, func(context.Context) (interface{}, error) {
		return nil, stderrors.New("unavailable")
	}, "topology")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClientWithConfig_RequiresAddress(t *testing.T) {
	_, err := NewClientWithConfig(context.Background(), &ClientConfig{})
	assert.Error(t, err)
}
