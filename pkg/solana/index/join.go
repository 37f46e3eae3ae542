package index

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/code-payments/marketplace-adapter/pkg/metrics"
	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

// KeyFunc builds the secondary scan filters for a parent record.
type KeyFunc func(parent Item) ([]solana.Filter, error)

// JoinedItem pairs a parent with the result of its secondary scan. Exactly
// one of Children or Err is set.
type JoinedItem struct {
	Parent   Item
	Children *Result
	Err      error
}

// Join performs the second phase of a parent/child lookup: for every decoded
// parent it runs an independent scan of kind, using the filters produced by
// key. Scans run concurrently, bounded by the index's concurrency.
//
// A failed secondary scan is recorded on its parent and does not cancel the
// others. Join only fails when there was at least one scan to run and every
// one of them failed.
func (i *Index) Join(ctx context.Context, parents *Result, kind string, key KeyFunc) (joined []JoinedItem, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Join")
	tracer.AddAttribute("kind", kind)
	defer tracer.End()
	defer func() {
		tracer.OnError(err)
	}()

	decoded := parents.Decoded()
	joined = make([]JoinedItem, len(decoded))

	var g errgroup.Group
	g.SetLimit(i.concurrency)
	for j, parent := range decoded {
		j, parent := j, parent
		g.Go(func() error {
			joined[j] = JoinedItem{Parent: parent}

			filters, err := key(parent)
			if err != nil {
				joined[j].Err = errors.Wrap(err, "failed to build join key")
				return nil
			}

			children, err := i.Query(ctx, kind, filters...)
			if err != nil {
				joined[j].Err = err
				return nil
			}

			joined[j].Children = children
			return nil
		})
	}
	g.Wait()

	var failed int
	var lastErr error
	for _, item := range joined {
		if item.Err != nil {
			failed++
			lastErr = item.Err
		}
	}

	if failed > 0 {
		i.log.WithFields(logrus.Fields{
			"method": "Join",
			"kind":   kind,
			"failed": failed,
			"total":  len(joined),
		}).WithError(lastErr).Warn("some secondary scans failed")
	}

	if len(joined) > 0 && failed == len(joined) {
		return nil, errors.Wrapf(ErrAllFailed, "%s: %v", kind, lastErr)
	}
	return joined, nil
}
