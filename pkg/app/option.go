package app

import (
	"net/http"
)

// Middleware wraps the application's handler.
type Middleware func(http.Handler) http.Handler

// Option configures the environment run by Run().
type Option func(o *opts)

type opts struct {
	middleware []Middleware
}

// WithMiddleware configures the app's HTTP servers to use the provided middleware.
//
// Middleware is evaluated in addition order, and configured middleware runs after
// the app's default middleware.
func WithMiddleware(middleware Middleware) Option {
	return func(o *opts) {
		o.middleware = append(o.middleware, middleware)
	}
}
