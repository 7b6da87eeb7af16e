// Package cursor provides persisted progress tracking for subscriptions.
package cursor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hedeqiang/tonwatch/event"
)

// ErrUnsupported is returned by Open for an unknown store URL.
var ErrUnsupported = errors.New("cursor: unsupported store")

// Position is the persisted form of a subscription cursor. Account
// subscriptions use LT and Hash, chain subscriptions use SeqNo.
type Position struct {
	SeqNo     uint32    `json:"seqno,omitempty" bson:"seqno,omitempty"`
	LT        uint64    `json:"lt,omitempty" bson:"lt,omitempty"`
	Hash      string    `json:"hash,omitempty" bson:"hash,omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// FromTxID builds an account position.
func FromTxID(id event.TxID) Position {
	return Position{LT: id.LT, Hash: id.Hash.HexBare()}
}

// TxID returns the account cursor held by the position.
func (p Position) TxID() (event.TxID, error) {
	if p.LT == 0 && p.Hash == "" {
		return event.TxID{}, nil
	}
	h, err := event.HashFromHex(p.Hash)
	if err != nil {
		return event.TxID{}, fmt.Errorf("cursor: decode position: %w", err)
	}
	return event.TxID{LT: p.LT, Hash: h}, nil
}

// Cursor persists subscription positions by key, allowing resumable polling.
type Cursor interface {
	// Load returns the saved position for key. ok is false if nothing
	// has been saved yet.
	Load(ctx context.Context, key string) (pos Position, ok bool, err error)

	// Save persists the position for key.
	Save(ctx context.Context, key string, pos Position) error

	// Close releases the store's resources.
	Close() error
}
