package watcher

import (
	"context"
	"errors"
	"sync"

	"github.com/xssnick/tonutils-go/address"

	"github.com/hedeqiang/tonwatch/event"
)

var errTransient = errors.New("transient")

// fakeChain is an in-memory chain.Query.
type fakeChain struct {
	mu sync.Mutex

	// history is oldest first.
	history      []event.Transaction
	accountCalls int
	// failEvery makes every n-th account call fail.
	failEvery  int
	failAlways bool

	head     uint32
	shards   map[uint32][]event.Shard
	blocks   map[event.Shard][]event.TxRef
	missing  map[uint64]bool
	failOnce map[event.Shard]bool
	drained  []event.Shard
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		shards:   make(map[uint32][]event.Shard),
		blocks:   make(map[event.Shard][]event.TxRef),
		missing:  make(map[uint64]bool),
		failOnce: make(map[event.Shard]bool),
	}
}

func testAccount() *address.Address {
	return address.NewAddress(0, 0, make([]byte, 32))
}

func txAt(lt uint64) event.Transaction {
	var h event.Hash
	h[0], h[1], h[2] = byte(lt), byte(lt>>8), byte(lt>>16)
	return event.Transaction{Account: testAccount(), LT: lt, Hash: h}
}

func (f *fakeChain) append(lts ...uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, lt := range lts {
		f.history = append(f.history, txAt(lt))
	}
}

func (f *fakeChain) ID() string { return "test" }

func (f *fakeChain) AccountTransactions(_ context.Context, _ *address.Address, limit int, before event.TxID) ([]event.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.accountCalls++
	if f.failAlways || (f.failEvery > 0 && f.accountCalls%f.failEvery == 0) {
		return nil, errTransient
	}

	var page []event.Transaction
	for i := len(f.history) - 1; i >= 0 && len(page) < limit; i-- {
		tx := f.history[i]
		if !before.IsZero() && tx.LT >= before.LT {
			continue
		}
		page = append(page, tx)
	}
	return page, nil
}

func (f *fakeChain) LatestSeqNo(context.Context) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func (f *fakeChain) ShardsAt(_ context.Context, seqno uint32) ([]event.Shard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shards[seqno], nil
}

func (f *fakeChain) ShardTransactions(_ context.Context, shard event.Shard) ([]event.TxRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOnce[shard] {
		delete(f.failOnce, shard)
		return nil, errTransient
	}
	f.drained = append(f.drained, shard)
	return f.blocks[shard], nil
}

func (f *fakeChain) Transaction(_ context.Context, ref event.TxRef) (*event.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[ref.LT] {
		return nil, nil
	}
	tx := txAt(ref.LT)
	return &tx, nil
}

// addBlock registers a shard block of seqno holding transactions at lts.
func (f *fakeChain) addBlock(shard event.Shard, lts ...uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	refs := make([]event.TxRef, len(lts))
	for i, lt := range lts {
		tx := txAt(lt)
		refs[i] = event.TxRef{Account: tx.Account, LT: lt, Hash: tx.Hash, Shard: shard}
	}
	f.blocks[shard] = refs
}

// collector is an event.Handler recording what it receives.
type collector struct {
	mu   sync.Mutex
	txs  []event.Transaction
	fail func(tx event.Transaction) error
}

func (c *collector) handle(_ context.Context, tx event.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		if err := c.fail(tx); err != nil {
			return err
		}
	}
	c.txs = append(c.txs, tx)
	return nil
}

func (c *collector) lts() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, len(c.txs))
	for i, tx := range c.txs {
		out[i] = tx.LT
	}
	return out
}
