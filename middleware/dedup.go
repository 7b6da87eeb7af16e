package middleware

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/hedeqiang/tonwatch/event"
)

// Dedup suppresses transactions the handler has already accepted. A
// transaction is remembered only after the handler succeeds, so failed
// ones are still retried. Block subscriptions redeliver the shards of a
// partially processed seqno; Dedup keeps that from reaching the handler
// twice within one process.
//
// Every wrapped handler gets its own cache: an account subscription and a
// block subscription that both see a transaction each deliver it once.
type Dedup struct {
	size int
}

// NewDedup remembers up to size transactions per wrapped handler.
func NewDedup(size int) (*Dedup, error) {
	if size <= 0 {
		return nil, fmt.Errorf("middleware: dedup size must be positive, got %d", size)
	}
	return &Dedup{size: size}, nil
}

// Wrap decorates the handler with deduplication.
func (d *Dedup) Wrap(next event.Handler) event.Handler {
	seen, err := lru.New(d.size)
	if err != nil {
		// Only reachable for a Dedup not built by NewDedup.
		panic(fmt.Sprintf("middleware: dedup cache: %v", err))
	}
	return func(ctx context.Context, tx event.Transaction) error {
		key := dedupKey{id: tx.ID()}
		if tx.Account != nil {
			key.account = tx.Account.StringRaw()
		}
		if seen.Contains(key) {
			return nil
		}
		if err := next(ctx, tx); err != nil {
			return err
		}
		seen.Add(key, struct{}{})
		return nil
	}
}

type dedupKey struct {
	account string
	id      event.TxID
}
