// Package middleware provides interceptors for transaction delivery pipelines.
package middleware

import (
	"github.com/hedeqiang/tonwatch/event"
)

// Middleware wraps a handler, adding cross-cutting behavior (logging, metrics, etc.).
type Middleware interface {
	// Wrap returns a new handler that decorates next.
	Wrap(next event.Handler) event.Handler
}

// Func adapts a plain wrapping function to Middleware.
type Func func(next event.Handler) event.Handler

// Wrap calls f.
func (f Func) Wrap(next event.Handler) event.Handler {
	return f(next)
}

// Chain composes middlewares around handler, applying them in the order
// provided (first middleware is outermost).
func Chain(handler event.Handler, mws ...Middleware) event.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i].Wrap(handler)
	}
	return handler
}
