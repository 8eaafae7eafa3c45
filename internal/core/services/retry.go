package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/logger"
)

// Default retry policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 8 * time.Second
)

// RetryPolicy bounds retries of transient upstream failures.
// Only errors marked retryable (rate limits, timeouts) are retried;
// everything else surfaces immediately. After MaxAttempts the last
// error surfaces; a transient failure is never downgraded to an
// empty result.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the
	// first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Each retry
	// doubles it, with jitter.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the default bounded backoff policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Do runs fn, retrying retryable failures with jittered exponential
// backoff until an attempt succeeds, a non-retryable error occurs,
// MaxAttempts is reached, or ctx is cancelled.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := p.BaseDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !domain.IsRetryable(err) || attempt >= attempts {
			return err
		}

		wait := jitter(delay)
		logger.Warn("%s failed (attempt %d/%d), retrying in %v: %v", op, attempt, attempts, wait, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}

// jitter spreads a delay uniformly over [d/2, d) to avoid retry
// stampedes.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
