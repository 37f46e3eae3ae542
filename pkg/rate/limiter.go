package rate

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/code-payments/marketplace-adapter/pkg/cache"
)

// DefaultMaxKeys bounds how many keys a local limiter tracks at once.
const DefaultMaxKeys = 10_000

// Limiter limits operations based on a provided key.
type Limiter interface {
	Allow(key string) (bool, error)
}

type Option func(*localRateLimiter)

// WithBurst overrides the per key burst.
func WithBurst(burst int) Option {
	return func(l *localRateLimiter) {
		if burst > 0 {
			l.burst = burst
		}
	}
}

// WithMaxKeys overrides DefaultMaxKeys. Past the limit, the least recently
// seen key is forgotten and starts over with a full bucket.
func WithMaxKeys(maxKeys int) Option {
	return func(l *localRateLimiter) {
		if maxKeys > 0 {
			l.maxKeys = maxKeys
		}
	}
}

type localRateLimiter struct {
	limit   rate.Limit
	burst   int
	maxKeys int

	mu       sync.Mutex
	limiters cache.Cache[*rate.Limiter]
}

// NewLocalRateLimiter returns an in memory token bucket limiter per key. By
// default each key gets a burst equal to its per second rate, with a minimum
// of one.
func NewLocalRateLimiter(limit rate.Limit, opts ...Option) Limiter {
	l := &localRateLimiter{
		limit:   limit,
		burst:   max(int(limit), 1),
		maxKeys: DefaultMaxKeys,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.limiters = cache.New[*rate.Limiter](l.maxKeys)
	return l
}

// Allow implements Limiter.Allow.
func (l *localRateLimiter) Allow(key string) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters.Retrieve(key)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Insert(key, limiter, 1)
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}
