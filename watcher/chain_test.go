package watcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/retry"
)

func newChainSub(t *testing.T, q *fakeChain, h event.Handler, cfg Config[uint32]) *Subscriber[uint32] {
	t.Helper()
	src := NewChainSource(q, WithChainRetry(retry.Policy{}))
	sub, err := New[uint32](context.Background(), src, h, cfg)
	require.NoError(t, err)
	return sub
}

func workShard(seqno uint32) event.Shard {
	return event.Shard{Workchain: 0, Shard: event.RootShard, SeqNo: seqno}
}

func TestChainEnumeratesMasterBlock(t *testing.T) {
	q := newFakeChain()
	q.head = 4
	q.shards[4] = []event.Shard{workShard(40)}
	q.addBlock(event.MasterAt(4), 1)
	q.addBlock(workShard(40), 2, 3)

	c := &collector{}
	sub := newChainSub(t, q, c.handle, Config[uint32]{Start: 3})

	delivered, err := sub.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, c.lts())
	assert.Equal(t, []event.Shard{event.MasterAt(4), workShard(40)}, q.drained)

	require.NotNil(t, delivered[0].Shard)
	assert.True(t, delivered[0].Shard.IsMaster())
	assert.Equal(t, workShard(40), *delivered[2].Shard)
	assert.Equal(t, uint32(4), sub.Cursor())
}

func TestChainAdvancesOneSeqNoAtATime(t *testing.T) {
	q := newFakeChain()
	q.head = 6
	var commits []uint32
	c := &collector{}
	sub := newChainSub(t, q, c.handle, Config[uint32]{
		Start:    3,
		OnCommit: func(n uint32) { commits = append(commits, n) },
	})

	_, err := sub.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint32{4, 5, 6}, commits)
	assert.Equal(t, []event.Shard{event.MasterAt(4), event.MasterAt(5), event.MasterAt(6)}, q.drained)
}

func TestChainStartsAtHeadWithoutCursor(t *testing.T) {
	q := newFakeChain()
	q.head = 1000
	q.addBlock(event.MasterAt(1000), 77)

	c := &collector{}
	sub := newChainSub(t, q, c.handle, Config[uint32]{})

	_, err := sub.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{77}, c.lts())
	assert.Equal(t, uint32(1000), sub.Cursor())
}

func TestChainCaughtUp(t *testing.T) {
	q := newFakeChain()
	q.head = 9
	sub := newChainSub(t, q, (&collector{}).handle, Config[uint32]{Start: 9})

	delivered, err := sub.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, delivered)
	assert.Empty(t, q.drained)
	assert.Equal(t, uint32(9), sub.Cursor())
}

func TestChainShardFailureReprocessesSeqNo(t *testing.T) {
	q := newFakeChain()
	q.head = 4
	a := event.Shard{Workchain: 0, Shard: 0x4000000000000000, SeqNo: 50}
	b := event.Shard{Workchain: 0, Shard: -0x4000000000000000, SeqNo: 51}
	q.shards[4] = []event.Shard{a, b}
	q.addBlock(a, 10)
	q.addBlock(b, 20)
	q.failOnce[b] = true

	c := &collector{}
	sub := newChainSub(t, q, c.handle, Config[uint32]{Start: 3})

	_, err := sub.Poll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, []uint64{10}, c.lts())
	assert.Equal(t, uint32(3), sub.Cursor(), "partially drained seqno is not committed")

	_, err = sub.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 10, 20}, c.lts(), "shard A is delivered again")
	assert.Equal(t, uint32(4), sub.Cursor())
}

func TestChainSkipsMissingTransaction(t *testing.T) {
	q := newFakeChain()
	q.head = 2
	q.addBlock(event.MasterAt(2), 5, 6, 7)
	q.missing[6] = true

	c := &collector{}
	sub := newChainSub(t, q, c.handle, Config[uint32]{Start: 1})

	_, err := sub.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 7}, c.lts())
	assert.Equal(t, uint32(2), sub.Cursor())
}

func TestReplayRange(t *testing.T) {
	q := newFakeChain()
	q.head = 10
	for n := uint32(1); n <= 10; n++ {
		q.addBlock(event.MasterAt(n), uint64(n)*100)
	}

	c := &collector{}
	r, err := NewReplay(q, 3, 5, c.handle, nil, WithChainRetry(retry.Policy{}))
	require.NoError(t, err)

	last, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(5), last)
	assert.Equal(t, []uint64{300, 400, 500}, c.lts())
}

func TestReplayFromFirstSeqNo(t *testing.T) {
	q := newFakeChain()
	q.head = 2
	q.addBlock(event.MasterAt(1), 1)
	q.addBlock(event.MasterAt(2), 2)

	c := &collector{}
	r, err := NewReplay(q, 1, 5, c.handle, nil)
	require.NoError(t, err)

	last, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), last, "stops at the chain head")
	assert.Equal(t, []uint64{1, 2}, c.lts())
}

func TestReplayInvalidRange(t *testing.T) {
	_, err := NewReplay(newFakeChain(), 5, 4, (&collector{}).handle, nil)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewReplay(newFakeChain(), 0, 4, (&collector{}).handle, nil)
	assert.ErrorIs(t, err, ErrInvalidRange)
}
