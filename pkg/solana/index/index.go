package index

import (
	"context"
	"crypto/ed25519"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/code-payments/marketplace-adapter/pkg/metrics"
	"github.com/code-payments/marketplace-adapter/pkg/solana"
	"github.com/code-payments/marketplace-adapter/pkg/solana/codec"
)

const (
	metricsStructName = "index.index"

	// DefaultConcurrency bounds the number of concurrent store calls in a
	// single fan-out.
	DefaultConcurrency = 8
)

// ErrAllFailed indicates every task of a fan-out failed, so not even a
// partial result could be produced.
var ErrAllFailed = errors.New("index: all secondary lookups failed")

// Item is one slot of a result set. Exactly one of Record or Err is set.
type Item struct {
	Address ed25519.PublicKey
	Record  *codec.Record
	Err     error
}

// OK reports whether the item decoded.
func (i Item) OK() bool {
	return i.Err == nil && i.Record != nil
}

// Result is the outcome of a query. Items are in store order, which is
// unspecified.
type Result struct {
	Kind  string
	Items []Item
}

// Decoded returns the items that decoded successfully.
func (r *Result) Decoded() []Item {
	var decoded []Item
	for _, item := range r.Items {
		if item.OK() {
			decoded = append(decoded, item)
		}
	}
	return decoded
}

// Failed returns the partial-failure items.
func (r *Result) Failed() []Item {
	var failed []Item
	for _, item := range r.Items {
		if !item.OK() {
			failed = append(failed, item)
		}
	}
	return failed
}

// SortBy orders items by less. Failed items sort after decoded ones. The sort
// is stable.
func (r *Result) SortBy(less func(a, b *codec.Record) bool) {
	sort.SliceStable(r.Items, func(i, j int) bool {
		a, b := r.Items[i], r.Items[j]
		if a.OK() != b.OK() {
			return a.OK()
		}
		if !a.OK() {
			return false
		}
		return less(a.Record, b.Record)
	})
}

// Index performs filtered scans against an AccountStore for the accounts of
// a single program.
type Index struct {
	log         *logrus.Entry
	store       solana.AccountStore
	program     ed25519.PublicKey
	registry    *codec.Registry
	concurrency int
}

// Option configures an Index.
type Option func(*Index)

// WithConcurrency bounds the number of concurrent store calls per fan-out.
func WithConcurrency(n int) Option {
	return func(i *Index) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

// New returns an Index over program's accounts in store.
func New(store solana.AccountStore, program ed25519.PublicKey, registry *codec.Registry, opts ...Option) *Index {
	i := &Index{
		log:         logrus.StandardLogger().WithField("type", "solana/index"),
		store:       store,
		program:     program,
		registry:    registry,
		concurrency: DefaultConcurrency,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Program returns the program whose accounts are indexed.
func (i *Index) Program() ed25519.PublicKey {
	return i.program
}

// Registry returns the schema registry used for decoding.
func (i *Index) Registry() *codec.Registry {
	return i.registry
}

// Query scans for accounts of kind matching every filter. The kind's
// discriminator filter is always applied. Filters are validated against the
// schema before any scan is issued.
//
// Records that fail to decode are reported as failed items and do not abort
// the query. Store failures are returned as errors.
func (i *Index) Query(ctx context.Context, kind string, filters ...solana.Filter) (result *Result, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Query")
	tracer.AddAttribute("kind", kind)
	defer tracer.End()
	defer func() {
		tracer.OnError(err)
	}()

	schema, err := i.registry.Schema(kind)
	if err != nil {
		return nil, err
	}

	scanFilters := make([]solana.Filter, 0, len(filters)+1)
	scanFilters = append(scanFilters, schema.DiscriminatorFilter())
	for _, f := range filters {
		if err := schema.ValidateFilter(f); err != nil {
			return nil, err
		}
		scanFilters = append(scanFilters, f)
	}

	accounts, err := i.store.ScanProgramAccounts(ctx, i.program, scanFilters...)
	if err != nil {
		return nil, err
	}

	result = &Result{
		Kind:  kind,
		Items: make([]Item, len(accounts)),
	}
	for j, account := range accounts {
		result.Items[j] = decodeItem(schema, account.Address, account.Data)
	}

	failed := len(result.Failed())
	if failed > 0 {
		i.log.WithFields(logrus.Fields{
			"method": "Query",
			"kind":   kind,
			"failed": failed,
			"total":  len(accounts),
		}).Warn("some records failed to decode")
	}
	metrics.RecordIndexItems(kind, len(accounts)-failed, failed)
	tracer.AddAttribute("results", len(accounts))

	return result, nil
}

// Fetch reads and decodes a single account of kind.
func (i *Index) Fetch(ctx context.Context, kind string, address ed25519.PublicKey) (record *codec.Record, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Fetch")
	tracer.AddAttribute("kind", kind)
	defer tracer.End()
	defer func() {
		tracer.OnError(err)
	}()

	schema, err := i.registry.Schema(kind)
	if err != nil {
		return nil, err
	}

	data, err := i.store.FetchAccount(ctx, address)
	if err != nil {
		return nil, err
	}

	return schema.Decode(data)
}

// FetchMany reads and decodes accounts of kind concurrently. Every address
// gets a slot in the result, in input order, holding either the record or
// the error for that address (decode failure, not found, or store failure).
func (i *Index) FetchMany(ctx context.Context, kind string, addresses []ed25519.PublicKey) (*Result, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "FetchMany")
	tracer.AddAttribute("kind", kind)
	defer tracer.End()

	schema, err := i.registry.Schema(kind)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	result := &Result{
		Kind:  kind,
		Items: make([]Item, len(addresses)),
	}

	var g errgroup.Group
	g.SetLimit(i.concurrency)
	for j, address := range addresses {
		j, address := j, address
		g.Go(func() error {
			data, err := i.store.FetchAccount(ctx, address)
			if err != nil {
				result.Items[j] = Item{Address: address, Err: err}
				return nil
			}
			result.Items[j] = decodeItem(schema, address, data)
			return nil
		})
	}
	g.Wait()

	return result, nil
}

func decodeItem(schema *codec.Schema, address ed25519.PublicKey, data []byte) Item {
	record, err := schema.Decode(data)
	if err != nil {
		return Item{Address: address, Err: err}
	}
	return Item{Address: address, Record: record}
}
