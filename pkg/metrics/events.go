package metrics

import (
	"context"
)

const (
	TransactionBuiltEventName     = "MarketplaceTransactionBuilt"
	TransactionSubmittedEventName = "MarketplaceTransactionSubmitted"
)

// RecordEvent records a New Relic custom event. It is a no-op when ctx does
// not carry an application, which is the case outside of request handling.
func RecordEvent(ctx context.Context, eventName string, kvPairs map[string]interface{}) {
	if nr := newRelicFromContext(ctx); nr != nil {
		nr.RecordCustomEvent(eventName, kvPairs)
	}
}
