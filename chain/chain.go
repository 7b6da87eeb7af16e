// Package chain provides the query port the subscription engine reads the chain through.
package chain

import (
	"context"

	"github.com/xssnick/tonutils-go/address"

	"github.com/hedeqiang/tonwatch/event"
)

// Query is the read-only view of a TON network used by subscribers.
// Implementations perform a single request per call; retries are applied
// by the caller.
type Query interface {
	// ID returns the unique network identifier (e.g. "mainnet", "testnet").
	ID() string

	// LatestSeqNo returns the most recent masterchain seqno.
	LatestSeqNo(ctx context.Context) (uint32, error)

	// ShardsAt returns the workchain shard blocks first committed by the
	// masterchain block seqno, parents before children: shard blocks
	// already referenced by seqno-1 are left out and blocks produced in
	// between are included. The masterchain block itself is not included.
	ShardsAt(ctx context.Context, seqno uint32) ([]event.Shard, error)

	// ShardTransactions lists every transaction in one shard block.
	ShardTransactions(ctx context.Context, shard event.Shard) ([]event.TxRef, error)

	// Transaction loads the full transaction behind a reference.
	// Returns nil and no error when the transaction cannot be found.
	Transaction(ctx context.Context, ref event.TxRef) (*event.Transaction, error)

	// AccountTransactions returns up to limit transactions of account,
	// newest first, strictly older than before. A zero before starts from
	// the newest transaction.
	AccountTransactions(ctx context.Context, account *address.Address, limit int, before event.TxID) ([]event.Transaction, error)
}
