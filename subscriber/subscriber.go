// Package subscriber provides delivery targets for watched transactions.
package subscriber

import (
	"context"
	"errors"

	"github.com/hedeqiang/tonwatch/event"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("subscriber: closed")

// Subscriber receives transactions through a chosen delivery mechanism.
// Send has the event.Handler signature, so sub.Send can be passed
// wherever a handler is expected.
type Subscriber interface {
	// Send delivers a transaction. A returned error aborts the tick that
	// produced it and the transaction is delivered again later.
	Send(ctx context.Context, tx event.Transaction) error

	// Close terminates the subscriber and releases resources.
	Close()
}
