package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketplace_adapter"

var (
	// Registry holds the adapter's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	storeCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "calls_total",
			Help:      "Total number of account store calls.",
		},
		[]string{"op", "result"},
	)

	storeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "call_duration_seconds",
			Help:      "Duration of account store calls.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"op"},
	)

	indexItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "items_total",
			Help:      "Total number of scanned records, by kind and decode outcome.",
		},
		[]string{"kind", "result"},
	)

	transactionsBuilt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "transactions_total",
			Help:      "Total number of transactions built, by leading instruction and outcome.",
		},
		[]string{"instruction", "result"},
	)

	transactionSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "transaction_size_bytes",
			Help:      "Wire size of built transactions.",
			Buckets:   prometheus.LinearBuckets(128, 128, 10),
		},
	)

	metadataCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "cache_lookups_total",
			Help:      "Total number of metadata cache lookups, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		storeCalls,
		storeDuration,
		indexItems,
		transactionsBuilt,
		transactionSize,
		metadataCacheLookups,
		methodDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with HTTP request metrics.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordStoreCall records the outcome and latency of an account store call.
func RecordStoreCall(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeCalls.WithLabelValues(op, result).Inc()
	storeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordIndexItems records how many scanned records of a kind decoded and
// how many failed.
func RecordIndexItems(kind string, decoded, failed int) {
	if decoded > 0 {
		indexItems.WithLabelValues(kind, "decoded").Add(float64(decoded))
	}
	if failed > 0 {
		indexItems.WithLabelValues(kind, "failed").Add(float64(failed))
	}
}

// RecordTransactionBuilt records the outcome of serializing a transaction.
// size is ignored on failure.
func RecordTransactionBuilt(instruction string, size int, err error) {
	if err != nil {
		transactionsBuilt.WithLabelValues(instruction, "error").Inc()
		return
	}
	transactionsBuilt.WithLabelValues(instruction, "ok").Inc()
	transactionSize.Observe(float64(size))
}

// RecordMetadataCacheLookup records a metadata cache hit or miss.
func RecordMetadataCacheLookup(hit bool) {
	if hit {
		metadataCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	metadataCacheLookups.WithLabelValues("miss").Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Routes are flat, so anything outside the versioned API collapses into a
// single label value.
func canonicalPath(raw string) string {
	if strings.HasPrefix(raw, "/v1/") {
		return raw
	}
	return "other"
}
