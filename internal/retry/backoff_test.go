package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) RetryConfig {
	return RetryConfig{
		MaxRetries: retries,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   100 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     false,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, time.Second, config.BaseDelay)
	assert.Equal(t, 30*time.Second, config.MaxDelay)
	assert.Equal(t, 2.0, config.Multiplier)
	assert.True(t, config.Jitter)
}

func TestRetryWithBackoff_Success(t *testing.T) {
	result := RetryWithBackoff(context.Background(), fastConfig(2), func() error {
		return nil
	}, nil)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.NoError(t, result.LastError)
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	result := RetryWithBackoff(context.Background(), fastConfig(3), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	}, nil)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.NotZero(t, result.TotalDuration)
}

func TestRetryWithBackoff_AllAttemptsFailure(t *testing.T) {
	expectedError := errors.New("connection reset by peer")
	result := RetryWithBackoff(context.Background(), fastConfig(2), func() error {
		return expectedError
	}, nil)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, expectedError, result.LastError)
}

func TestRetryWithBackoff_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("password authentication failed")
	result := RetryWithBackoff(context.Background(), fastConfig(5), func() error {
		return permanent
	}, nil)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, permanent, result.LastError)
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	config := RetryConfig{
		MaxRetries: 5,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := RetryWithBackoff(ctx, config, func() error {
		return errors.New("i/o timeout")
	}, nil)

	assert.False(t, result.Success)
	assert.Equal(t, context.DeadlineExceeded, result.LastError)
	assert.LessOrEqual(t, result.Attempts, 2)
}

func TestCalculateDelay(t *testing.T) {
	config := RetryConfig{
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}

	assert.Equal(t, 1*time.Second, calculateDelay(config, 0))
	assert.Equal(t, 2*time.Second, calculateDelay(config, 1))
	assert.Equal(t, 4*time.Second, calculateDelay(config, 2))
	assert.Equal(t, 10*time.Second, calculateDelay(config, 10), "capped at MaxDelay")
}

func TestCalculateDelay_WithJitter(t *testing.T) {
	config := RetryConfig{
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}

	for i := 0; i < 20; i++ {
		d := calculateDelay(config, 1)
		require.InDelta(t, float64(2*time.Second), float64(d), float64(200*time.Millisecond))
	}
}

func TestIsRetryableError(t *testing.T) {
	retryable := []error{
		errors.New("dial tcp 127.0.0.1:5432: connection refused"),
		errors.New("pq: the database system is starting up"),
		errors.New("HTTP 503 Service Unavailable"),
		errors.New("read: i/o timeout"),
		errors.New("unexpected EOF"),
	}
	for _, err := range retryable {
		assert.True(t, IsRetryableError(err), "%v", err)
	}

	permanent := []error{
		errors.New("invalid input"),
		errors.New("pq: password authentication failed"),
		errors.New("HTTP 401 Unauthorized"),
	}
	for _, err := range permanent {
		assert.False(t, IsRetryableError(err), "%v", err)
	}

	assert.False(t, IsRetryableError(nil))
}
