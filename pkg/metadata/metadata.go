package metadata

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds ResolveAll when no concurrency is provided.
const DefaultConcurrency = 8

var (
	// ErrNotAvailable indicates metadata could not be retrieved or parsed.
	// It is the only failure a Resolver reports.
	ErrNotAvailable = errors.New("metadata: not available")
)

// Record is off-chain JSON metadata referenced by an account's metadata URI.
type Record struct {
	URI         string          `json:"uri"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`

	// IsDefault is set when the record was substituted because the real
	// metadata was not available.
	IsDefault bool `json:"is_default"`
}

// Resolver fetches metadata JSON documents.
type Resolver interface {
	// FetchJSON returns the parsed document at uri, or ErrNotAvailable.
	FetchJSON(ctx context.Context, uri string) (*Record, error)
}

// DefaultRecord is the placeholder used when metadata for uri is not
// available.
func DefaultRecord(uri string) *Record {
	return &Record{
		URI:         uri,
		Name:        "Untitled",
		Description: "Metadata unavailable",
		IsDefault:   true,
	}
}

// ResolveOrDefault resolves uri, substituting DefaultRecord on any failure.
// An empty uri resolves to the default without a fetch.
func ResolveOrDefault(ctx context.Context, r Resolver, uri string) *Record {
	if len(strings.TrimSpace(uri)) == 0 {
		return DefaultRecord(uri)
	}

	record, err := r.FetchJSON(ctx, uri)
	if err != nil {
		logrus.StandardLogger().WithFields(logrus.Fields{
			"type": "metadata/resolver",
			"uri":  uri,
		}).WithError(err).Debug("substituting default metadata")
		return DefaultRecord(uri)
	}
	return record
}

// ResolveAll resolves every uri concurrently, with at most concurrency
// fetches in flight. The result has one record per uri, in input order, and
// failed fetches never affect their siblings.
func ResolveAll(ctx context.Context, r Resolver, uris []string, concurrency int) []*Record {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	records := make([]*Record, len(uris))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, uri := range uris {
		i, uri := i, uri
		g.Go(func() error {
			records[i] = ResolveOrDefault(ctx, r, uri)
			return nil
		})
	}
	g.Wait()

	return records
}
