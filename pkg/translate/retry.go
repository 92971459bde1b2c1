package translate

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryUnit   = time.Second
)

// LinearDelay is the wait after failed attempt n (1-indexed): 1, 4, 7, 10...
// units.
func LinearDelay(attempt int, unit time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return unit * time.Duration(1+3*(attempt-1))
}

// linearBackOff adapts LinearDelay to backoff.BackOff.
type linearBackOff struct {
	unit    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return LinearDelay(b.attempt, b.unit)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// retryPolicy runs an operation at most maxAttempts times, waiting
// LinearDelay between attempts. Non-transient errors stop immediately.
type retryPolicy struct {
	maxAttempts int
	unit        time.Duration
	timer       backoff.Timer // nil uses real time
}

func (p retryPolicy) run(ctx context.Context, op func() error, onRetry func(err error, wait time.Duration)) error {
	attempts := p.maxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var b backoff.BackOff = &linearBackOff{unit: p.unit}
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	wrapped := func() error {
		err := op()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotifyWithTimer(wrapped, b, onRetry, p.timer)
}
