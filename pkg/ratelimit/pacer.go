package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces calls to a remote API
type Limiter interface {
	// Wait blocks until the next call may proceed or ctx is done
	Wait(ctx context.Context) error
}

// Pacer enforces a fixed pause between consecutive calls. The first call
// proceeds immediately; every later call sleeps the full delay.
type Pacer struct {
	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	started bool
}

// NewPacer creates a pacer with the given inter-call delay
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, sleep: sleepContext}
}

// Wait implements Limiter
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	first := !p.started
	p.started = true
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if first || p.delay <= 0 {
		return nil
	}
	return p.sleep(ctx, p.delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlimited never waits
type Unlimited struct{}

// Wait returns immediately unless ctx is already done
func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
