package subscriber

import (
	"context"

	"github.com/hedeqiang/tonwatch/event"
)

// Channel delivers transactions through a Go channel. Send blocks while the
// buffer is full, so a slow reader slows the subscription down instead of
// losing transactions.
type Channel struct {
	ch   chan event.Transaction
	done chan struct{}
}

// NewChannel creates a channel-based subscriber with the given buffer size.
func NewChannel(bufSize int) *Channel {
	if bufSize < 0 {
		bufSize = 0
	}
	return &Channel{
		ch:   make(chan event.Transaction, bufSize),
		done: make(chan struct{}),
	}
}

// Transactions returns the channel to read from.
func (c *Channel) Transactions() <-chan event.Transaction {
	return c.ch
}

// Done is closed by Close.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Send waits until the reader accepts tx, ctx is done or the subscriber is closed.
func (c *Channel) Send(ctx context.Context, tx event.Transaction) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.ch <- tx:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts down the subscriber. Blocked senders return ErrClosed.
func (c *Channel) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}
