// Package event defines the core data structures for TON transactions.
package event

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Hash represents a 32-byte transaction hash.
type Hash [32]byte

const (
	// MasterWorkchain is the workchain of the masterchain.
	MasterWorkchain int32 = -1

	// RootShard is the shard prefix covering a whole workchain (0x8000000000000000).
	RootShard int64 = math.MinInt64
)

// TxID identifies a transaction's position in an account's history.
// The zero value means "no position".
type TxID struct {
	LT   uint64
	Hash Hash
}

// IsZero reports whether the id is unset.
func (id TxID) IsZero() bool {
	return id.LT == 0 && id.Hash.IsZero()
}

// Equal reports whether both ids point at the same transaction.
func (id TxID) Equal(other TxID) bool {
	return id.LT == other.LT && id.Hash == other.Hash
}

// String returns the "lt:hexhash" form accepted by ParseTxID.
func (id TxID) String() string {
	return strconv.FormatUint(id.LT, 10) + ":" + id.Hash.HexBare()
}

// ParseTxID parses an "lt:hash" pair. The hash may be hex or base64.
func ParseTxID(s string) (TxID, error) {
	ltStr, hashStr, ok := strings.Cut(s, ":")
	if !ok {
		return TxID{}, fmt.Errorf("invalid transaction id %q: want lt:hash", s)
	}
	lt, err := strconv.ParseUint(ltStr, 10, 64)
	if err != nil {
		return TxID{}, fmt.Errorf("invalid transaction id %q: %w", s, err)
	}
	h, err := HashFromHex(hashStr)
	if err != nil {
		if h, err = HashFromBase64(hashStr); err != nil {
			return TxID{}, fmt.Errorf("invalid transaction id %q: %w", s, err)
		}
	}
	return TxID{LT: lt, Hash: h}, nil
}

// Shard identifies one shard block: a subdivision of a workchain at one seqno.
type Shard struct {
	Workchain int32
	Shard     int64
	SeqNo     uint32
}

// MasterAt returns the masterchain block descriptor for seqno.
func MasterAt(seqno uint32) Shard {
	return Shard{Workchain: MasterWorkchain, Shard: RootShard, SeqNo: seqno}
}

// IsMaster reports whether the shard belongs to the masterchain.
func (s Shard) IsMaster() bool {
	return s.Workchain == MasterWorkchain
}

// Overlaps reports whether s and o are in the same workchain and their
// shard prefixes cover intersecting account ranges.
func (s Shard) Overlaps(o Shard) bool {
	if s.Workchain != o.Workchain {
		return false
	}
	return shardContains(uint64(s.Shard), uint64(o.Shard)) || shardContains(uint64(o.Shard), uint64(s.Shard))
}

// shardContains reports whether shard prefix a covers shard prefix b. The
// lowest set bit of a shard id terminates its prefix.
func shardContains(a, b uint64) bool {
	la, lb := a&-a, b&-b
	if la == 0 || la < lb {
		return false
	}
	mask := ^(la<<1 - 1)
	return a&mask == b&mask
}

// String implements fmt.Stringer, e.g. "(0,8000000000000000,123)".
func (s Shard) String() string {
	return fmt.Sprintf("(%d,%x,%d)", s.Workchain, uint64(s.Shard), s.SeqNo)
}

// TxRef is the short reference to a transaction returned by block listings.
type TxRef struct {
	Account *address.Address
	LT      uint64
	Hash    Hash
	Shard   Shard
}

// Message is the inbound message of a transaction.
type Message struct {
	// Source is nil for external messages.
	Source      *address.Address
	Destination *address.Address

	// Value is the attached amount in nanotons. Never nil.
	Value *big.Int

	// Body is the parsed message body, nil when absent or unparseable.
	Body *cell.Cell

	Bounce    bool
	Bounced   bool
	CreatedLT uint64
}

// IsInternal reports whether the message came from another account.
func (m *Message) IsInternal() bool {
	return m != nil && m.Source != nil
}

// Transaction is a single transaction of one account.
type Transaction struct {
	// Account is the address the transaction belongs to.
	Account *address.Address

	LT   uint64
	Hash Hash

	// Now is the chain-assigned time of the transaction.
	Now time.Time

	// In is the inbound message, nil for ticktock and similar system transactions.
	In *Message

	// OutMsgCount is the number of outbound messages the transaction produced.
	OutMsgCount int

	// Shard is the shard block the transaction was found in. Set only by
	// block subscriptions.
	Shard *Shard
}

// ID returns the transaction's position in its account history.
func (t Transaction) ID() TxID {
	return TxID{LT: t.LT, Hash: t.Hash}
}

// IsInternalIn reports whether the transaction was triggered by an internal message.
func (t Transaction) IsInternalIn() bool {
	return t.In.IsInternal()
}

// Handler receives delivered transactions. A returned error aborts the
// current tick; the transaction is delivered again on a later tick.
type Handler func(ctx context.Context, tx Transaction) error
