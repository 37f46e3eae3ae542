// Package metrics holds the adapter's Prometheus collectors and its New Relic
// tracing, custom event and log forwarding helpers.
package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicContextKey is the context key under which the New Relic application
// is stored for downstream custom events.
type NewRelicContextKey struct{}

func newRelicFromContext(ctx context.Context) *newrelic.Application {
	if ctx == nil {
		return nil
	}
	nr, _ := ctx.Value(NewRelicContextKey{}).(*newrelic.Application)
	return nr
}
