package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/code-payments/marketplace-adapter/pkg/metadata"
)

// Resolver is an in memory metadata.Resolver used for testing.
type Resolver struct {
	mu      sync.RWMutex
	records map[string]metadata.Record
	calls   int
}

// New returns an empty Resolver.
func New() *Resolver {
	return &Resolver{
		records: make(map[string]metadata.Record),
	}
}

// Set stores the record served for uri.
func (r *Resolver) Set(uri string, record metadata.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.URI = uri
	r.records[uri] = record
}

// Calls returns the number of fetches performed.
func (r *Resolver) Calls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.calls
}

// FetchJSON implements metadata.Resolver.FetchJSON.
func (r *Resolver) FetchJSON(ctx context.Context, uri string) (*metadata.Record, error) {
	r.mu.Lock()
	r.calls++
	record, ok := r.records[uri]
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(metadata.ErrNotAvailable, err.Error())
	}
	if !ok {
		return nil, errors.Wrapf(metadata.ErrNotAvailable, "no metadata at %s", uri)
	}
	return &record, nil
}
