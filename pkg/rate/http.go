package rate

import (
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const clientIPHeader = "X-Forwarded-For"

// ClientIP returns the originating client address of r. The first entry of
// X-Forwarded-For wins over the connection's remote address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get(clientIPHeader); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests with 429 once a client exceeds limiter. Limiter
// failures let the request through.
func Middleware(limiter Limiter) func(http.Handler) http.Handler {
	log := logrus.StandardLogger().WithField("type", "rate/middleware")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			allowed, err := limiter.Allow(ip)
			if err != nil {
				log.WithError(err).Warn("failed to check rate limit")
			} else if !allowed {
				log.WithField("client_ip", ip).Debug("rate limited")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"success":false,"error":"rate limited"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
