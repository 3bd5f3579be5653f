package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hirafetch/pkg/config"
	errs "hirafetch/pkg/errors"
	"hirafetch/pkg/logger"
)

// recordingSleeper captures requested waits without sleeping
type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func testConfig(maxAttempts int, base time.Duration, s *recordingSleeper) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ExponentialBackoff{BaseDelay: base, Multiplier: 2},
		RetryIf:     DefaultRetryIf,
		Sleep:       s.sleep,
		Context:     context.Background(),
		Logger:      logger.NewTestLogger(),
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffUncapped(t *testing.T) {
	backoff := &ExponentialBackoff{BaseDelay: time.Second}
	assert.Equal(t, 16*time.Second, backoff.NextDelay(5))
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	s := &recordingSleeper{}
	attempts := 0

	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.KindConnection, 0, "connection reset")
		}
		return nil
	}, testConfig(4, time.Second, s))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, s.waits)
}

func TestDoExhaustsRetryableErrors(t *testing.T) {
	s := &recordingSleeper{}
	attempts := 0

	err := Do(func() error {
		attempts++
		return errs.New(errs.KindTimeout, 0, "read timeout")
	}, testConfig(4, time.Second, s))

	require.Error(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, s.waits)
	assert.Contains(t, err.Error(), "max retry attempts (4) exceeded")

	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.KindTimeout, apiErr.Kind)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	kinds := []errs.Kind{errs.KindHTTPClient, errs.KindMalformedResponse, errs.KindAPI}

	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			s := &recordingSleeper{}
			attempts := 0

			err := Do(func() error {
				attempts++
				if attempts == 1 {
					return errs.New(errs.KindTransientServer, 503, "unavailable")
				}
				return errs.New(kind, 400, "bad")
			}, testConfig(5, 10*time.Millisecond, s))

			require.Error(t, err)
			assert.Equal(t, 2, attempts)
			assert.Equal(t, []time.Duration{10 * time.Millisecond}, s.waits)
			assert.Contains(t, err.Error(), "attempt 2")

			var apiErr *errs.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, kind, apiErr.Kind)
		})
	}
}

func TestDoDoesNotRetryUnclassifiedOrContextErrors(t *testing.T) {
	for _, opErr := range []error{errors.New("mystery"), context.Canceled} {
		s := &recordingSleeper{}
		attempts := 0

		err := Do(func() error {
			attempts++
			return opErr
		}, testConfig(4, time.Second, s))

		require.Error(t, err)
		assert.ErrorIs(t, err, opErr)
		assert.Equal(t, 1, attempts)
		assert.Empty(t, s.waits)
	}
}

func TestDoCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := testConfig(4, time.Second, &recordingSleeper{})
	cfg.Context = ctx
	cfg.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	attempts := 0
	err := Do(func() error {
		attempts++
		return errs.New(errs.KindTimeout, 0, "slow")
	}, cfg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestOnRetryHook(t *testing.T) {
	var seen []int
	cfg := testConfig(3, time.Millisecond, &recordingSleeper{})
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		seen = append(seen, attempt)
	}

	_ = Do(func() error {
		return errs.New(errs.KindTransientServer, 500, "oops")
	}, cfg)

	assert.Equal(t, []int{1, 2}, seen)
}

func TestDoWithResult(t *testing.T) {
	s := &recordingSleeper{}
	attempts := 0

	got, err := DoWithResult(func() (string, error) {
		attempts++
		if attempts == 1 {
			return "partial", errs.New(errs.KindTimeout, 0, "slow")
		}
		return "done", nil
	}, testConfig(4, time.Second, s))

	require.NoError(t, err)
	assert.Equal(t, "done", got)

	got, err = DoWithResult(func() (string, error) {
		return "ignored", errs.New(errs.KindAPI, 0, "SERVICE KEY IS NOT REGISTERED")
	}, testConfig(4, time.Second, s))
	require.Error(t, err)
	assert.Empty(t, got)
}

func TestSingleAttempt(t *testing.T) {
	s := &recordingSleeper{}
	attempts := 0

	err := Do(func() error {
		attempts++
		return errs.New(errs.KindTimeout, 0, "slow")
	}, testConfig(1, time.Second, s))

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, s.waits)
	assert.Contains(t, err.Error(), "max retry attempts (1) exceeded")
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(context.Background(), config.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    time.Second,
	}, logger.NewNopLogger())

	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Backoff.NextDelay(1))
	assert.Equal(t, time.Second, cfg.Backoff.NextDelay(3))
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
