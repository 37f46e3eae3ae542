package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/code-payments/marketplace-adapter/pkg/retry/backoff"
)

// Strategy determines whether or not an action should be retried after a
// failed attempt. Strategies are allowed to delay.
type Strategy func(ctx context.Context, attempts uint, err error) bool

// Limit returns a strategy that limits the total number of attempts.
// maxAttempts should be >= 1, since the action is evaluated first.
func Limit(maxAttempts uint) Strategy {
	return func(_ context.Context, attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors returns a strategy that only retries the provided errors.
func RetriableErrors(retriableErrors ...error) Strategy {
	return func(_ context.Context, _ uint, err error) bool {
		for _, e := range retriableErrors {
			if errors.Is(err, e) {
				return true
			}
		}
		return false
	}
}

// NonRetriableErrors returns a strategy that never retries the provided errors.
func NonRetriableErrors(nonRetriableErrors ...error) Strategy {
	return func(_ context.Context, _ uint, err error) bool {
		for _, e := range nonRetriableErrors {
			if errors.Is(err, e) {
				return false
			}
		}
		return true
	}
}

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// RetriableStatusCodes returns a strategy that retries errors carrying one of
// the provided HTTP status codes.
func RetriableStatusCodes(retriableCodes ...int) Strategy {
	return func(_ context.Context, _ uint, err error) bool {
		var coder StatusCoder
		if !errors.As(err, &coder) {
			return false
		}

		for _, c := range retriableCodes {
			if coder.StatusCode() == c {
				return true
			}
		}
		return false
	}
}

// Backoff returns a strategy that waits before the next attempt. The wait is
// abandoned, and no further attempts are made, if ctx is done first.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	capped := backoff.Capped(strategy, maxBackoff)
	return func(ctx context.Context, attempts uint, _ error) bool {
		return sleeperImpl.Sleep(ctx, capped(attempts))
	}
}

// BackoffWithJitter is Backoff with the capped delay shifted by up to
// +/- jitter of itself. A jitter of 0.1 turns a 100ms delay into 90-110ms.
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	capped := backoff.Capped(strategy, maxBackoff)
	return func(ctx context.Context, attempts uint, _ error) bool {
		delay := float64(capped(attempts))
		return sleeperImpl.Sleep(ctx, time.Duration(delay*(1+rand.Float64()*jitter*2-jitter)))
	}
}

type sleeper interface {
	// Sleep blocks for d, returning false if ctx was done first.
	Sleep(ctx context.Context, d time.Duration) bool
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

var sleeperImpl sleeper = realSleeper{}
