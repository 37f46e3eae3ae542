// Package cache memoizes successful metadata fetches in memory.
package cache

import (
	"context"
	"time"

	"github.com/code-payments/marketplace-adapter/pkg/cache"
	"github.com/code-payments/marketplace-adapter/pkg/metadata"
	"github.com/code-payments/marketplace-adapter/pkg/metrics"
	"github.com/code-payments/marketplace-adapter/pkg/sync"
)

const (
	DefaultBudget = 10_000
	DefaultTTL    = 5 * time.Minute

	fetchStripes = 64
)

type entry struct {
	record    metadata.Record
	expiresAt time.Time
}

type resolver struct {
	next    metadata.Resolver
	records cache.Cache[*entry]
	fetches *sync.StripedLock
	ttl     time.Duration
	now     func() time.Time
}

// Option configures the caching resolver.
type Option func(*resolver)

// WithTTL sets how long a fetched record is served before refetching.
func WithTTL(ttl time.Duration) Option {
	return func(r *resolver) {
		r.ttl = ttl
	}
}

// WithBudget sets the maximum number of cached records.
func WithBudget(budget int) Option {
	return func(r *resolver) {
		r.records = cache.New[*entry](budget)
	}
}

func withClock(now func() time.Time) Option {
	return func(r *resolver) {
		r.now = now
	}
}

// New wraps next with an LRU cache. Failures are never cached, and
// concurrent fetches of the same uri are collapsed into one.
func New(next metadata.Resolver, opts ...Option) metadata.Resolver {
	r := &resolver{
		next:    next,
		records: cache.New[*entry](DefaultBudget),
		fetches: sync.NewStripedLock(fetchStripes),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FetchJSON implements metadata.Resolver.FetchJSON.
func (r *resolver) FetchJSON(ctx context.Context, uri string) (*metadata.Record, error) {
	if record, ok := r.lookup(uri); ok {
		metrics.RecordMetadataCacheLookup(true)
		return record, nil
	}

	mu := r.fetches.Get([]byte(uri))
	mu.Lock()
	defer mu.Unlock()

	// Another caller may have filled the entry while we waited.
	if record, ok := r.lookup(uri); ok {
		metrics.RecordMetadataCacheLookup(true)
		return record, nil
	}
	metrics.RecordMetadataCacheLookup(false)

	record, err := r.next.FetchJSON(ctx, uri)
	if err != nil {
		return nil, err
	}

	r.records.Insert(uri, &entry{record: *record, expiresAt: r.now().Add(r.ttl)}, 1)

	copied := *record
	return &copied, nil
}

func (r *resolver) lookup(uri string) (*metadata.Record, bool) {
	e, ok := r.records.Retrieve(uri)
	if !ok {
		return nil, false
	}
	if !r.now().Before(e.expiresAt) {
		r.records.Remove(uri)
		return nil, false
	}

	copied := e.record
	return &copied, true
}
