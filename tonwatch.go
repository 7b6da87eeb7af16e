// Package tonwatch monitors TON accounts and whole networks, handing every
// new transaction to a handler in chain order.
//
// Usage:
//
//	m, err := tonwatch.New(
//	    tonwatch.WithCursor(cursor.NewFile("cursors.json")),
//	    tonwatch.WithPollInterval(5*time.Second),
//	)
//
//	m.AddChain(toncenter.New("", apiKey))
//
//	m.WatchAccount("mainnet", "EQ...", func(ctx context.Context, tx event.Transaction) error {
//	    fmt.Println("tx:", tx.ID())
//	    return nil
//	})
package tonwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hedeqiang/tonwatch/chain"
	"github.com/hedeqiang/tonwatch/cursor"
	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/internal/logger"
	"github.com/hedeqiang/tonwatch/internal/syncutil"
	"github.com/hedeqiang/tonwatch/middleware"
	"github.com/hedeqiang/tonwatch/retry"
	"github.com/hedeqiang/tonwatch/watcher"
)

// subscription is the part of watcher.Subscriber the monitor manages,
// independent of the cursor type.
type subscription interface {
	Key() string
	Position() cursor.Position
	Start(ctx context.Context, interval time.Duration) error
	Stop()
	Wait()
}

// Monitor is the entry point: it owns the registered networks, the cursor
// store and every running subscription.
type Monitor struct {
	registry    *chain.Registry
	store       cursor.Cursor
	breaker     *retry.CircuitBreaker
	middlewares []middleware.Middleware
	config      Config
	logger      *zap.Logger
	registerer  prometheus.Registerer
	metrics     *watcher.Metrics

	group *syncutil.Group

	mu       sync.Mutex
	subs     map[string]subscription
	shutdown bool
}

// New creates a Monitor with the given options.
func New(opts ...Option) (*Monitor, error) {
	m := &Monitor{
		registry: chain.NewRegistry(),
		store:    cursor.NewMemory(),
		config:   DefaultConfig(),
		subs:     make(map[string]subscription),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.config.PollInterval <= 0 {
		return nil, fmt.Errorf("tonwatch: poll interval must be positive, got %s", m.config.PollInterval)
	}
	if m.logger == nil {
		l, err := logger.New(m.config.LogLevel, "json")
		if err != nil {
			return nil, fmt.Errorf("tonwatch: %w", err)
		}
		m.logger = l
	}
	if m.registerer != nil {
		m.metrics = watcher.NewMetrics(m.registerer)
	}
	m.group = syncutil.NewGroup(context.Background())
	return m, nil
}

// AddChain registers a network client. Returns ErrChainAlreadyRegistered
// if its ID is taken.
func (m *Monitor) AddChain(q chain.Query) error {
	return m.registry.Register(q)
}

// Chains returns the registered network IDs in sorted order.
func (m *Monitor) Chains() []string {
	return m.registry.IDs()
}

// Use appends middleware to the delivery pipeline.
// It only affects subscriptions created afterwards.
func (m *Monitor) Use(mw ...middleware.Middleware) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.middlewares = append(m.middlewares, mw...)
}

// WatchAccount starts delivering the transactions of account on chainID,
// oldest first, resuming from the stored cursor if there is one. Without a
// stored cursor the first tick delivers the account's whole history.
// The address is validated before anything is started.
func (m *Monitor) WatchAccount(chainID, account string, h event.Handler) error {
	q, err := m.query(chainID)
	if err != nil {
		return err
	}
	src, err := watcher.NewAccountSource(q, account,
		watcher.WithPageSize(m.config.PageSize),
		watcher.WithAccountRetry(m.policy(m.config.AccountRetry)),
		watcher.WithAccountLogger(m.logger),
	)
	if err != nil {
		return err
	}
	if err := m.reserve(src.Key()); err != nil {
		return err
	}

	sub, err := watcher.New[event.TxID](m.group.Context(), src, m.handler(h), watcher.Config[event.TxID]{
		Store:   m.store,
		Logger:  m.logger,
		Metrics: m.metrics,
	})
	if err != nil {
		m.release(src.Key())
		return err
	}
	return m.start(sub)
}

// WatchChain starts delivering every transaction of every shard block
// finalized on chainID, one masterchain seqno at a time. Without a stored
// cursor it begins at the current head.
func (m *Monitor) WatchChain(chainID string, h event.Handler) error {
	q, err := m.query(chainID)
	if err != nil {
		return err
	}
	src := watcher.NewChainSource(q,
		watcher.WithChainRetry(m.policy(m.config.ChainRetry)),
		watcher.WithChainLogger(m.logger),
	)
	if err := m.reserve(src.Key()); err != nil {
		return err
	}

	sub, err := watcher.New[uint32](m.group.Context(), src, m.handler(h), watcher.Config[uint32]{
		Store:   m.store,
		Logger:  m.logger,
		Metrics: m.metrics,
	})
	if err != nil {
		m.release(src.Key())
		return err
	}
	return m.start(sub)
}

// ReplayChain delivers every transaction of masterchain seqnos [from, to]
// and returns the last seqno fully delivered. It blocks until done and
// persists no cursor.
func (m *Monitor) ReplayChain(ctx context.Context, chainID string, from, to uint32, h event.Handler) (uint32, error) {
	if m.isShutdown() {
		return 0, ErrShutdown
	}
	q, err := m.query(chainID)
	if err != nil {
		return 0, err
	}
	r, err := watcher.NewReplay(q, from, to, m.handler(h), m.logger,
		watcher.WithChainRetry(m.policy(m.config.ChainRetry)),
	)
	if err != nil {
		return 0, err
	}
	return r.Run(ctx)
}

// Cursors returns the committed position of every running subscription,
// keyed by subscription key.
func (m *Monitor) Cursors() map[string]cursor.Position {
	m.mu.Lock()
	subs := make([]subscription, 0, len(m.subs))
	for _, s := range m.subs {
		if s != nil {
			subs = append(subs, s)
		}
	}
	m.mu.Unlock()

	out := make(map[string]cursor.Position, len(subs))
	for _, s := range subs {
		out[s.Key()] = s.Position()
	}
	return out
}

// Shutdown stops every subscription and waits for in-flight ticks to
// finish, or for ctx to be done. Ticks are never cancelled mid-way, so a
// cursor always matches what the handler has seen.
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	m.logger.Info("shutting down")
	if err := m.group.StopContext(ctx); err != nil {
		return fmt.Errorf("tonwatch: shutdown: %w", err)
	}
	return nil
}

func (m *Monitor) query(chainID string) (chain.Query, error) {
	if m.isShutdown() {
		return nil, ErrShutdown
	}
	q, ok := m.registry.Get(chainID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	return q, nil
}

func (m *Monitor) policy(s retry.Strategy) retry.Policy {
	return retry.Policy{Strategy: s, Breaker: m.breaker, Logger: m.logger}
}

func (m *Monitor) handler(h event.Handler) event.Handler {
	if h == nil {
		return nil
	}
	m.mu.Lock()
	mws := append([]middleware.Middleware(nil), m.middlewares...)
	m.mu.Unlock()
	return middleware.Chain(h, mws...)
}

// reserve claims key so concurrent Watch calls cannot both load the same
// cursor.
func (m *Monitor) reserve(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return ErrShutdown
	}
	if _, exists := m.subs[key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, key)
	}
	m.subs[key] = nil
	return nil
}

func (m *Monitor) release(key string) {
	m.mu.Lock()
	delete(m.subs, key)
	m.mu.Unlock()
}

func (m *Monitor) start(sub subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		delete(m.subs, sub.Key())
		return ErrShutdown
	}

	// Ticks outlive the group context: Shutdown stops the schedule and
	// waits, it does not abort a tick half-way through a page.
	if err := sub.Start(context.WithoutCancel(m.group.Context()), m.config.PollInterval); err != nil {
		delete(m.subs, sub.Key())
		return err
	}
	m.subs[sub.Key()] = sub
	m.group.Go(func(ctx context.Context) {
		<-ctx.Done()
		sub.Stop()
		sub.Wait()
	})
	m.logger.Info("subscription started", zap.String("subscriber", sub.Key()))
	return nil
}

func (m *Monitor) isShutdown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}
