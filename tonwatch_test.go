package tonwatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"go.uber.org/zap"

	"github.com/hedeqiang/tonwatch/cursor"
	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/middleware"
)

var watched = address.NewAddress(0, 0, make([]byte, 32))

// stubChain serves a fixed account history and an empty masterchain.
type stubChain struct {
	id string

	mu      sync.Mutex
	history []event.Transaction // oldest first
	head    uint32
	block   chan struct{}
}

func (s *stubChain) ID() string { return s.id }

func (s *stubChain) LatestSeqNo(context.Context) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head, nil
}

func (s *stubChain) ShardsAt(context.Context, uint32) ([]event.Shard, error) {
	return nil, nil
}

func (s *stubChain) ShardTransactions(_ context.Context, shard event.Shard) ([]event.TxRef, error) {
	return []event.TxRef{{Account: watched, LT: uint64(shard.SeqNo), Shard: shard}}, nil
}

func (s *stubChain) Transaction(_ context.Context, ref event.TxRef) (*event.Transaction, error) {
	return &event.Transaction{Account: ref.Account, LT: ref.LT}, nil
}

func (s *stubChain) AccountTransactions(_ context.Context, _ *address.Address, limit int, before event.TxID) ([]event.Transaction, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var page []event.Transaction
	for i := len(s.history) - 1; i >= 0 && len(page) < limit; i-- {
		if !before.IsZero() && s.history[i].LT >= before.LT {
			continue
		}
		page = append(page, s.history[i])
	}
	return page, nil
}

func withHistory(lts ...uint64) *stubChain {
	s := &stubChain{id: "test"}
	for _, lt := range lts {
		s.history = append(s.history, event.Transaction{Account: watched, LT: lt, Hash: event.Hash{byte(lt)}})
	}
	return s
}

func newMonitor(t *testing.T, opts ...Option) *Monitor {
	t.Helper()
	opts = append([]Option{
		WithLogger(zap.NewNop()),
		WithPollInterval(20 * time.Millisecond),
	}, opts...)
	m, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

type recorder struct {
	mu  sync.Mutex
	lts []uint64
}

func (r *recorder) handle(_ context.Context, tx event.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lts = append(r.lts, tx.LT)
	return nil
}

func (r *recorder) snapshot() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.lts...)
}

func TestWatchAccount(t *testing.T) {
	store := cursor.NewMemory()
	m := newMonitor(t, WithCursor(store), WithPageSize(2))
	require.NoError(t, m.AddChain(withHistory(1, 2, 3, 4, 5)))

	var rec recorder
	require.NoError(t, m.WatchAccount("test", watched.String(), rec.handle))

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 5
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, rec.snapshot())

	cursors := m.Cursors()
	require.Len(t, cursors, 1)
	for key, pos := range cursors {
		assert.Equal(t, uint64(5), pos.LT)

		saved, ok, err := store.Load(context.Background(), key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(5), saved.LT)
	}
}

func TestWatchAccountErrors(t *testing.T) {
	m := newMonitor(t)
	require.NoError(t, m.AddChain(withHistory()))

	err := m.WatchAccount("test", "not-an-address", func(context.Context, event.Transaction) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Empty(t, m.Cursors())

	err = m.WatchAccount("missing", watched.String(), func(context.Context, event.Transaction) error { return nil })
	assert.ErrorIs(t, err, ErrChainNotFound)

	err = m.WatchAccount("test", watched.String(), nil)
	assert.Error(t, err)

	// A failed construction must not leave the key reserved.
	var rec recorder
	assert.NoError(t, m.WatchAccount("test", watched.String(), rec.handle))
	assert.ErrorIs(t, m.WatchAccount("test", watched.String(), rec.handle), ErrAlreadyRunning)
}

func TestAddChainDuplicate(t *testing.T) {
	m := newMonitor(t)
	require.NoError(t, m.AddChain(&stubChain{id: "mainnet"}))
	require.NoError(t, m.AddChain(&stubChain{id: "testnet"}))

	assert.ErrorIs(t, m.AddChain(&stubChain{id: "mainnet"}), ErrChainAlreadyRegistered)
	assert.Equal(t, []string{"mainnet", "testnet"}, m.Chains())
}

func TestWatchChainStartsAtHead(t *testing.T) {
	m := newMonitor(t)
	sc := &stubChain{id: "test", head: 100}
	require.NoError(t, m.AddChain(sc))

	var rec recorder
	require.NoError(t, m.WatchChain("test", rec.handle))

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	sc.mu.Lock()
	sc.head = 102
	sc.mu.Unlock()

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint64{100, 101, 102}, rec.snapshot())
	assert.Equal(t, uint32(102), m.Cursors()["test:chain"].SeqNo)

	assert.ErrorIs(t, m.WatchChain("test", rec.handle), ErrAlreadyRunning)
}

func TestReplayChain(t *testing.T) {
	m := newMonitor(t)
	require.NoError(t, m.AddChain(&stubChain{id: "test", head: 50}))

	var rec recorder
	last, err := m.ReplayChain(context.Background(), "test", 10, 12, rec.handle)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), last)
	assert.Equal(t, []uint64{10, 11, 12}, rec.snapshot())
	assert.Empty(t, m.Cursors())

	_, err = m.ReplayChain(context.Background(), "test", 12, 10, rec.handle)
	assert.Error(t, err)
}

func TestMiddlewareApplied(t *testing.T) {
	m := newMonitor(t)
	require.NoError(t, m.AddChain(&stubChain{id: "test", head: 50}))

	var seen atomic.Int32
	m.Use(middleware.Func(func(next event.Handler) event.Handler {
		return func(ctx context.Context, tx event.Transaction) error {
			seen.Add(1)
			return next(ctx, tx)
		}
	}))

	var rec recorder
	_, err := m.ReplayChain(context.Background(), "test", 1, 4, rec.handle)
	require.NoError(t, err)
	assert.Equal(t, int32(4), seen.Load())
}

func TestShutdownWaitsForTick(t *testing.T) {
	m := newMonitor(t)
	sc := withHistory(1, 2)
	sc.block = make(chan struct{})
	require.NoError(t, m.AddChain(sc))

	var rec recorder
	require.NoError(t, m.WatchAccount("test", watched.String(), rec.handle))

	shut := make(chan error, 1)
	go func() { shut <- m.Shutdown(context.Background()) }()

	select {
	case <-shut:
		t.Fatal("shutdown returned while a tick was blocked")
	case <-time.After(30 * time.Millisecond):
	}

	close(sc.block)
	require.NoError(t, <-shut)
	assert.Equal(t, []uint64{1, 2}, rec.snapshot())

	assert.ErrorIs(t, m.WatchAccount("test", watched.String(), rec.handle), ErrShutdown)
	_, err := m.ReplayChain(context.Background(), "test", 1, 1, rec.handle)
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestShutdownDeadline(t *testing.T) {
	m := newMonitor(t)
	sc := withHistory(1)
	sc.block = make(chan struct{})
	defer close(sc.block)
	require.NoError(t, m.AddChain(sc))
	require.NoError(t, m.WatchAccount("test", watched.String(), func(context.Context, event.Transaction) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.Shutdown(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewValidation(t *testing.T) {
	_, err := New(WithPollInterval(0))
	assert.Error(t, err)

	_, err = New(WithLogLevel("loud"))
	assert.Error(t, err)

	m, err := New(WithLogLevel("error"), WithMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	assert.NotNil(t, m.metrics)
	assert.Equal(t, DefaultConfig().PageSize, m.config.PageSize)
}
