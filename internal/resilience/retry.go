package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy is an explicit backoff policy consumed by Retry/RetryVal.
// It replaces ad hoc retry loops so the backoff math is testable on its
// own, independent of any network call.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// 1 means no retries. Default 3.
	MaxAttempts int
	// BaseDelay is the delay before the first retry. Default 1s.
	BaseDelay time.Duration
	// MaxDelay caps the computed delay. Default 5s.
	MaxDelay time.Duration
	// Multiplier scales the delay between attempts. Default 2.
	Multiplier float64
	// JitterFraction randomizes each delay by ±fraction. 0 disables jitter.
	JitterFraction float64
	// ShouldRetry decides whether an error is worth retrying. Nil means
	// IsTransient.
	ShouldRetry func(err error) bool
	// OnRetry runs before each backoff sleep with the upcoming attempt
	// number (1-based) and the error that triggered it.
	OnRetry func(attempt int, err error)
}

// DefaultRetryPolicy matches the orchestrator's stage-retry schedule:
// 1s, 2s, 4s... capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	if p.JitterFraction < 0 {
		p.JitterFraction = 0
	}
	return p
}

// Delay returns the backoff before retry number attempt (0-based), i.e.
// min(BaseDelay * Multiplier^attempt, MaxDelay) plus jitter.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.JitterFraction > 0 {
		span := d * p.JitterFraction
		d += (rand.Float64()*2 - 1) * span
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Retry runs fn under the policy, sleeping between attempts. Context
// cancellation stops further attempts immediately.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	_, err := RetryVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryVal runs fn under the policy and returns its value on success.
func RetryVal[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) || attempt >= p.MaxAttempts-1 {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// RetryLogger returns an OnRetry hook that logs each attempt.
func RetryLogger(provider, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying",
			zap.String("provider", provider),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
