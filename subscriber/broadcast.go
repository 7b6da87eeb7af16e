package subscriber

import (
	"context"
	"fmt"
	"sync"

	"github.com/hedeqiang/tonwatch/event"
)

// Broadcast distributes transactions to multiple subscribers in the order
// they were added.
type Broadcast struct {
	mu   sync.RWMutex
	subs []Subscriber
}

// NewBroadcast creates a new broadcast dispatcher.
func NewBroadcast(subs ...Subscriber) *Broadcast {
	return &Broadcast{subs: subs}
}

// Add registers a subscriber to receive broadcast transactions.
func (b *Broadcast) Add(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
}

// Send delivers tx to each subscriber in turn and stops at the first error.
// Subscribers before the failing one will see tx again on redelivery.
func (b *Broadcast) Send(ctx context.Context, tx event.Transaction) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i, sub := range b.subs {
		if err := sub.Send(ctx, tx); err != nil {
			return fmt.Errorf("subscriber %d: %w", i, err)
		}
	}
	return nil
}

// Close shuts down all registered subscribers.
func (b *Broadcast) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub.Close()
	}
	b.subs = nil
}

// Len returns the number of registered subscribers.
func (b *Broadcast) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
