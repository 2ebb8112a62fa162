package retry

import (
	"context"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// ExponentialBackoff returns delay based on attempt number.
// The delay doubles with each attempt: base * 2^attempt
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	return base * (1 << attempt)
}

// Policy controls how Do retries a failing call.
type Policy struct {
	// MaxRetries is the number of extra attempts after the first call.
	MaxRetries int
	// BaseDelay is the wait before the first retry; later retries double it.
	BaseDelay time.Duration
	// Retryable reports whether err deserves another attempt. Nil retries everything.
	Retryable func(err error) bool
	// Delay may return a server-suggested wait for err that replaces BaseDelay.
	Delay func(err error) time.Duration
	// OnRetry is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the policy
// runs out of retries. The last error from fn is returned unchanged.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var (
		attempt int
		lastErr error
	)

	backoff := goretry.BackoffFunc(func() (time.Duration, bool) {
		if attempt >= p.MaxRetries {
			return 0, true
		}
		base := p.BaseDelay
		if p.Delay != nil {
			if hint := p.Delay(lastErr); hint > 0 {
				base = hint
			}
		}
		wait := ExponentialBackoff(attempt, base)
		attempt++
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, lastErr)
		}
		return wait, false
	})

	return goretry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		return goretry.RetryableError(err)
	})
}
