package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
)

var methodDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "method",
		Name:      "call_duration_seconds",
		Help:      "Duration of traced method calls, by component, method and outcome.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	},
	[]string{"component", "method", "result"},
)

// MethodTracer observes a single method call. The duration always lands in
// Prometheus; a New Relic segment is added when ctx carries a transaction.
type MethodTracer struct {
	component string
	method    string
	start     time.Time
	failed    bool

	txn *newrelic.Transaction
	seg *newrelic.Segment
}

// TraceMethodCall starts tracing a method call on a struct or package.
func TraceMethodCall(ctx context.Context, structOrPackageName, methodName string) *MethodTracer {
	t := &MethodTracer{
		component: structOrPackageName,
		method:    methodName,
		start:     time.Now(),
	}

	if ctx != nil {
		if txn := newrelic.FromContext(ctx); txn != nil {
			t.txn = txn
			t.seg = txn.StartSegment(fmt.Sprintf("%s %s", structOrPackageName, methodName))
		}
	}
	return t
}

// AddAttribute adds key-value metadata to the New Relic segment, if any.
func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t.seg == nil {
		return
	}
	t.seg.AddAttribute(key, value)
}

// OnError marks the call as failed.
func (t *MethodTracer) OnError(err error) {
	if err == nil {
		return
	}

	t.failed = true
	if t.txn != nil {
		t.txn.NoticeError(err)
	}
}

// End completes the trace.
func (t *MethodTracer) End() {
	result := "ok"
	if t.failed {
		result = "error"
	}
	methodDuration.WithLabelValues(t.component, t.method, result).Observe(time.Since(t.start).Seconds())

	if t.seg != nil {
		t.seg.End()
	}
}
