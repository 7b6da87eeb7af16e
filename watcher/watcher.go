// Package watcher provides the cursor-driven subscription engine: sources
// that page through the chain, a subscriber that delivers and commits their
// output, and a scheduler that ticks subscribers periodically.
package watcher

import (
	"context"
	"errors"

	"github.com/hedeqiang/tonwatch/cursor"
	"github.com/hedeqiang/tonwatch/event"
)

var (
	// ErrBusy is returned by Subscriber.Poll while another tick is running.
	ErrBusy = errors.New("watcher: tick already in progress")

	// ErrStarted is returned when starting a scheduler twice.
	ErrStarted = errors.New("watcher: already started")

	// ErrInvalidAddress is returned when an account address cannot be parsed.
	ErrInvalidAddress = errors.New("watcher: invalid address")

	// ErrNonMonotonic is returned when the chain returns a page that does
	// not move further back in history than the previous one.
	ErrNonMonotonic = errors.New("watcher: history page did not advance")

	// ErrInvalidRange is returned for a replay range with from > to or from == 0.
	ErrInvalidRange = errors.New("watcher: invalid replay range")
)

// Sink receives the output of one tick. Deliver hands a transaction to the
// application; Commit records that everything up to c has been delivered.
type Sink[C comparable] interface {
	Deliver(ctx context.Context, tx event.Transaction) error
	Commit(ctx context.Context, c C) error
}

// Source is a paginated, cursor-resumable stream of transactions.
type Source[C comparable] interface {
	// Key identifies the stream in the cursor store.
	Key() string

	// Poll delivers everything after from to sink, committing as it goes.
	// An error aborts the tick; whatever was committed stays committed.
	Poll(ctx context.Context, from C, sink Sink[C]) error

	// Encode and Decode convert the cursor to and from its persisted form.
	Encode(c C) cursor.Position
	Decode(p cursor.Position) (C, error)
}
