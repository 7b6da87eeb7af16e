package subscriber

import (
	"context"

	"github.com/hedeqiang/tonwatch/event"
)

// Callback delivers transactions by invoking a handler.
type Callback struct {
	fn   event.Handler
	done chan struct{}
}

// NewCallback creates a callback-based subscriber.
func NewCallback(fn event.Handler) *Callback {
	return &Callback{
		fn:   fn,
		done: make(chan struct{}),
	}
}

// Send invokes the handler. Returns ErrClosed after Close.
func (c *Callback) Send(ctx context.Context, tx event.Transaction) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	return c.fn(ctx, tx)
}

// Close stops the subscriber.
func (c *Callback) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}
