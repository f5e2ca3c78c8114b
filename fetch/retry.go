package fetch

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// Retry is a bounded exponential backoff policy.
type Retry struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration
	// MaxDelay caps any single wait. Zero means no cap.
	MaxDelay time.Duration
	// Multiplier grows the wait after each failed attempt.
	Multiplier float64
}

// DefaultRetry tries three times, waiting 1s then 2s.
var DefaultRetry = Retry{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	MaxDelay:    30 * time.Second,
	Multiplier:  2,
}

func (r Retry) normalized() Retry {
	if r.MaxAttempts < 1 {
		r.MaxAttempts = 1
	}
	if r.BaseDelay < 0 {
		r.BaseDelay = 0
	}
	if r.Multiplier < 1 {
		r.Multiplier = 1
	}
	return r
}

// exponential builds the jitter-free backoff described by r.
func (r Retry) exponential() *backoff.ExponentialBackOff {
	r = r.normalized()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.BaseDelay
	b.Multiplier = r.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	if r.MaxDelay > 0 {
		b.MaxInterval = r.MaxDelay
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// policy bounds the exponential backoff to MaxAttempts tries under ctx.
func (r Retry) policy(ctx context.Context) backoff.BackOff {
	r = r.normalized()

	var b backoff.BackOff = &backoff.StopBackOff{}
	if r.MaxAttempts > 1 {
		b = backoff.WithMaxRetries(r.exponential(), uint64(r.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Delay returns the wait before the attempt following the given failed
// attempt (1-based).
func (r Retry) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	b := r.exponential()
	for i := 1; i < attempt; i++ {
		b.NextBackOff()
	}
	return b.NextBackOff()
}

// do runs fn until it succeeds, returns a permanent or context error, or
// the attempts run out. onRetry is called before each wait.
func (r Retry) do(ctx context.Context, key string, fn func() error, onRetry func(attempt int, err error, wait time.Duration)) error {
	var attempts int
	var terminal bool

	op := func() error {
		attempts++
		err := fn()
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			terminal = true
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			terminal = true
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		if onRetry != nil {
			onRetry(attempts, err, wait)
		}
	}

	err := backoff.RetryNotify(op, r.policy(ctx), notify)
	if err == nil || terminal || ctx.Err() != nil {
		return err
	}
	return &RetryError{Key: key, Attempts: attempts, Err: err}
}
