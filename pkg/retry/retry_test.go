package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "redditanalyzer/pkg/errors"
	"redditanalyzer/pkg/logger"
)

// recordingSleep records requested delays without waiting
type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func remoteTestConfig(rec *recordingSleep) *Config {
	cfg := RemoteConfig(5, 2, logger.NewNopLogger())
	cfg.Sleep = rec.sleep
	return cfg
}

func TestPowerBackoff(t *testing.T) {
	backoff := &PowerBackoff{Factor: 2, Unit: time.Second}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, backoff.NextDelay(test.attempt), "attempt %d", test.attempt)
	}

	capped := &PowerBackoff{Factor: 2, Unit: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, 5*time.Second, capped.NextDelay(3))
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0,
	}

	assert.Equal(t, 100*time.Millisecond, backoff.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, backoff.NextDelay(2))
	assert.Equal(t, 800*time.Millisecond, backoff.NextDelay(4))
	assert.Equal(t, 1*time.Second, backoff.NextDelay(6), "capped at max")
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	delays := make(map[time.Duration]bool)
	for i := 0; i < 10; i++ {
		delays[backoff.NextDelay(2)] = true
	}
	assert.GreaterOrEqual(t, len(delays), 2, "jitter should vary delays")
}

func TestTransientFailuresThenSuccess(t *testing.T) {
	for k := 1; k < 5; k++ {
		rec := &recordingSleep{}
		attempts := 0

		result, err := DoWithResult(func() (string, error) {
			attempts++
			if attempts <= k {
				return "", &errs.Error{Type: errs.ErrorTypeServerError, Code: 503, Message: "unavailable"}
			}
			return "alice", nil
		}, remoteTestConfig(rec))

		require.NoError(t, err)
		assert.Equal(t, "alice", result)
		assert.Equal(t, k+1, attempts)

		expected := make([]time.Duration, 0, k)
		step := time.Second
		for i := 1; i <= k; i++ {
			step *= 2
			expected = append(expected, step)
		}
		assert.Equal(t, expected, rec.delays, "k=%d", k)
	}
}

func TestPermanentDenialAbortsAfterOneAttempt(t *testing.T) {
	rec := &recordingSleep{}
	attempts := 0
	forbidden := &errs.Error{Type: errs.ErrorTypeForbidden, Code: 403, Message: "forbidden"}

	result, err := DoWithResult(func() (*int, error) {
		attempts++
		return nil, forbidden
	}, remoteTestConfig(rec))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.delays)
	assert.True(t, errs.IsForbidden(err))
	assert.False(t, errors.Is(err, ErrExhausted))
}

func TestTransientFailuresExhaustBudget(t *testing.T) {
	rec := &recordingSleep{}
	attempts := 0
	rateLimited := &errs.Error{Type: errs.ErrorTypeRateLimit, Code: 429, Message: "too many requests"}

	err := Do(func() error {
		attempts++
		return rateLimited
	}, remoteTestConfig(rec))

	require.Error(t, err)
	assert.Equal(t, 5, attempts)
	assert.Len(t, rec.delays, 4, "no wait after the final attempt")
	assert.True(t, errors.Is(err, ErrExhausted))

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 5, exhausted.Attempts)
	assert.Equal(t, rateLimited, exhausted.Last)
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	notFound := &errs.Error{Type: errs.ErrorTypeNotFound, Code: 404, Message: "no such user"}

	err := Do(func() error {
		attempts++
		return notFound
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	})

	assert.Equal(t, notFound, err)
	assert.Equal(t, 1, attempts)
}

func TestPanicIsContained(t *testing.T) {
	attempts := 0

	err := Do(func() error {
		attempts++
		panic("boom")
	}, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
	})

	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "boom", panicErr.Value)
	assert.Equal(t, 1, attempts)
}

func TestOnRetryCallback(t *testing.T) {
	var seen []int
	attempts := 0

	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			seen = append(seen, attempt)
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 100 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		Context:     ctx,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2)
}

func TestWithContextCopiesConfig(t *testing.T) {
	base := RemoteConfig(0, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bound := base.WithContext(ctx)
	assert.Equal(t, ctx, bound.Context)
	assert.Equal(t, context.Background(), base.Context)
	assert.Equal(t, 5, bound.MaxAttempts)
}
