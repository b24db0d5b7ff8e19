package client

import (
	"context"
	"math"
	"time"

	"github.com/cenk/backoff"
)

// Policy bounds a retried operation.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // ceiling for any single delay
}

// DefaultPolicy returns 3 attempts with delays of 1s, 2s, ... capped at 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Delay returns the wait after the given zero-based failed attempt:
// BaseDelay * 2^attempt, clamped to MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

func (p Policy) attempts() int {
	return max(p.MaxAttempts, 1)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2.0
	b.RandomizationFactor = 0
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	// The attempt count bounds the loop, not elapsed time.
	b.MaxElapsedTime = time.Duration(math.MaxInt64)
	b.Reset()

	// WithMaxRetries treats zero as unlimited.
	if p.attempts() == 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.attempts()-1)), ctx)
}

// Notify is called after a failed attempt that will be retried.
// attempt is one-based; next is the delay before the following attempt.
type Notify func(err error, attempt int, next time.Duration)

// Retry runs op until it succeeds or the policy's attempts are exhausted,
// sleeping with capped exponential backoff between attempts. The error from
// the final attempt is returned. Cancelling ctx stops further attempts.
func Retry(ctx context.Context, p Policy, op func(ctx context.Context) error, notify Notify) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return op(ctx)
	}, p.backOff(ctx), func(err error, next time.Duration) {
		if notify != nil {
			notify(err, attempt, next)
		}
	})
}
