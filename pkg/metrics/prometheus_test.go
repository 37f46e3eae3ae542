package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandler(t *testing.T) {
	handler := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/user", "404"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/user?wallet=abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/user", "404"))
	assert.Equal(t, before+1, after)
}

func TestRecordStoreCall(t *testing.T) {
	okBefore := testutil.ToFloat64(storeCalls.WithLabelValues("getAccountInfo", "ok"))
	errBefore := testutil.ToFloat64(storeCalls.WithLabelValues("getAccountInfo", "error"))

	RecordStoreCall("getAccountInfo", time.Now(), nil)
	RecordStoreCall("getAccountInfo", time.Now(), errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(storeCalls.WithLabelValues("getAccountInfo", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(storeCalls.WithLabelValues("getAccountInfo", "error")))
}

func TestHandler(t *testing.T) {
	RecordIndexItems("User", 2, 1)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "marketplace_adapter_index_items_total"))
}

func TestCanonicalPath(t *testing.T) {
	assert.Equal(t, "/v1/projects", canonicalPath("/v1/projects"))
	assert.Equal(t, "other", canonicalPath("/favicon.ico"))
	assert.Equal(t, "other", canonicalPath("/"))
}

func TestNewRelicMiddleware_NilApp(t *testing.T) {
	called := false
	handler := NewRelicMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/user", nil))
	assert.True(t, called)
	assert.Equal(t, errorLevel, statusLevel(502))
	assert.Equal(t, warningLevel, statusLevel(429))
	assert.Equal(t, infoLevel, statusLevel(404))
}

func TestRecordTransactionBuilt(t *testing.T) {
	okBefore := testutil.ToFloat64(transactionsBuilt.WithLabelValues("create_user", "ok"))
	errBefore := testutil.ToFloat64(transactionsBuilt.WithLabelValues("create_user", "error"))

	RecordTransactionBuilt("create_user", 300, nil)
	RecordTransactionBuilt("create_user", 0, errors.New("too large"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(transactionsBuilt.WithLabelValues("create_user", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(transactionsBuilt.WithLabelValues("create_user", "error")))
}

func TestRecordMetadataCacheLookup(t *testing.T) {
	hitsBefore := testutil.ToFloat64(metadataCacheLookups.WithLabelValues("hit"))
	missesBefore := testutil.ToFloat64(metadataCacheLookups.WithLabelValues("miss"))

	RecordMetadataCacheLookup(true)
	RecordMetadataCacheLookup(false)
	RecordMetadataCacheLookup(false)

	assert.Equal(t, hitsBefore+1, testutil.ToFloat64(metadataCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, missesBefore+2, testutil.ToFloat64(metadataCacheLookups.WithLabelValues("miss")))
}

func TestTraceMethodCall(t *testing.T) {
	tracer := TraceMethodCall(context.Background(), "tracer_test", "Fail")
	tracer.AddAttribute("ignored", 1)
	tracer.OnError(nil)
	tracer.OnError(errors.New("boom"))
	tracer.End()

	TraceMethodCall(context.Background(), "tracer_test", "Succeed").End()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `marketplace_adapter_method_call_duration_seconds_count{component="tracer_test",method="Fail",result="error"} 1`)
	assert.Contains(t, body, `marketplace_adapter_method_call_duration_seconds_count{component="tracer_test",method="Succeed",result="ok"} 1`)
}

func TestForwardedMessage(t *testing.T) {
	entry := logrus.NewEntry(logrus.StandardLogger()).WithFields(logrus.Fields{
		"type":   "marketplace/server",
		"status": 404,
	}).WithError(errors.New("not found"))
	entry.Message = "rejected request"

	assert.Equal(t,
		`message="rejected request", error="not found", data={"status":404,"type":"marketplace/server"}`,
		forwardedMessage(entry),
	)

	bare := logrus.NewEntry(logrus.StandardLogger())
	bare.Message = "plain"
	assert.Equal(t, "plain", forwardedMessage(bare))
}

func TestNewRelicLogFormatter_NoApplication(t *testing.T) {
	formatter := NewCustomNewRelicLogFormatter(nil, &logrus.JSONFormatter{})

	entry := logrus.NewEntry(logrus.StandardLogger()).WithField("kind", "User")
	entry.Message = "scanned"
	entry.Level = logrus.InfoLevel

	line, err := formatter.Format(entry)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(line), "\n"))
	assert.Contains(t, string(line), `"kind":"User"`)
	assert.Contains(t, string(line), `"msg":"scanned"`)
}

func TestRecordEvent_NoApplication(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordEvent(context.Background(), TransactionBuiltEventName, map[string]interface{}{"size": 1})
	})
}
