package retry

import (
	"context"
	"math"
	"time"
)

// BackoffStrategy computes the pause after a failed attempt
type BackoffStrategy interface {
	// NextDelay returns the delay after the given failed attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff doubles (by Multiplier) the delay after every failure.
// The delay after attempt n is BaseDelay * Multiplier^(n-1), so the wait before
// attempt n is BaseDelay * Multiplier^(n-2).
type ExponentialBackoff struct {
	// BaseDelay is the wait before the second attempt
	BaseDelay time.Duration
	// MaxDelay caps a single wait; zero means uncapped
	MaxDelay time.Duration
	// Multiplier is the growth factor; values <= 1 are treated as 2
	Multiplier float64
}

// DefaultExponentialBackoff returns a pure doubling backoff starting at one second
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  1 * time.Second,
		Multiplier: 2.0,
	}
}

// NextDelay calculates the delay after the given failed attempt
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 || eb.BaseDelay <= 0 {
		return 0
	}

	multiplier := eb.Multiplier
	if multiplier <= 1 {
		multiplier = 2.0
	}

	delay := float64(eb.BaseDelay) * math.Pow(multiplier, float64(attempt-1))

	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	return time.Duration(delay)
}

// Sleeper pauses for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
