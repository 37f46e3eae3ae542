package metrics

import (
	"context"
	"net/http"

	"github.com/newrelic/go-agent/v3/newrelic"
)

const (
	httpRequestRouteAttributeKey        = "http.request.route"
	httpResponseStatusLevelAttributeKey = "http.response.statusLevel"

	infoLevel    = "info"
	warningLevel = "warning"
	errorLevel   = "error"
)

// NewRelicMiddleware starts a New Relic web transaction per request. The
// application is injected into the request context for custom metrics and
// events in downstream code.
func NewRelicMiddleware(app *newrelic.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if app == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), NewRelicContextKey{}, app)

			txn := app.StartTransaction(r.Method + " " + r.URL.Path)
			defer txn.End()

			txn.SetWebRequestHTTP(r)
			txn.AddAttribute(httpRequestRouteAttributeKey, r.URL.Path)

			rec := &statusRecorder{ResponseWriter: txn.SetWebResponse(w), status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(newrelic.NewContext(ctx, txn)))

			txn.AddAttribute(httpResponseStatusLevelAttributeKey, statusLevel(rec.status))
		})
	}
}

func statusLevel(status int) string {
	switch {
	case status >= 500:
		return errorLevel
	case status == http.StatusTooManyRequests:
		return warningLevel
	default:
		return infoLevel
	}
}
