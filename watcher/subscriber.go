package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hedeqiang/tonwatch/cursor"
	"github.com/hedeqiang/tonwatch/event"
)

// Config holds the optional collaborators of a Subscriber.
type Config[C comparable] struct {
	// Store persists the cursor. Nil keeps it in memory only.
	Store cursor.Cursor

	// Start seeds the cursor when the store holds no position.
	Start C

	// OnCommit is called after every cursor advance.
	OnCommit func(c C)

	Logger  *zap.Logger
	Metrics *Metrics
}

// Subscriber drives a Source: each tick polls it from the current cursor,
// hands delivered transactions to the handler and persists every commit.
// At most one tick runs at a time.
type Subscriber[C comparable] struct {
	source   Source[C]
	handler  event.Handler
	store    cursor.Cursor
	onCommit func(c C)
	logger   *zap.Logger
	metrics  *Metrics

	polling atomic.Bool

	mu     sync.RWMutex
	cursor C
	sched  *Scheduler
}

// New creates a subscriber, loading its cursor from cfg.Store if one is saved.
func New[C comparable](ctx context.Context, src Source[C], h event.Handler, cfg Config[C]) (*Subscriber[C], error) {
	if h == nil {
		return nil, errors.New("watcher: nil handler")
	}
	s := &Subscriber[C]{
		source:   src,
		handler:  h,
		store:    cfg.Store,
		onCommit: cfg.OnCommit,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		cursor:   cfg.Start,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("subscriber", src.Key()))

	if s.store != nil {
		pos, ok, err := s.store.Load(ctx, src.Key())
		if err != nil {
			return nil, fmt.Errorf("watcher: load cursor %s: %w", src.Key(), err)
		}
		if ok {
			c, err := src.Decode(pos)
			if err != nil {
				return nil, fmt.Errorf("watcher: decode cursor %s: %w", src.Key(), err)
			}
			s.cursor = c
			s.logger.Info("resuming", zap.Any("cursor", c))
		}
	}
	return s, nil
}

// Key returns the source's store key.
func (s *Subscriber[C]) Key() string {
	return s.source.Key()
}

// Cursor returns the last committed position.
func (s *Subscriber[C]) Cursor() C {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Position returns the last committed position in its persisted form.
func (s *Subscriber[C]) Position() cursor.Position {
	return s.source.Encode(s.Cursor())
}

// Poll runs one tick and returns the transactions delivered during it.
// On error the returned slice still holds what was delivered before the
// failure. Returns ErrBusy if a tick is already running.
func (s *Subscriber[C]) Poll(ctx context.Context) ([]event.Transaction, error) {
	if !s.polling.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.polling.Store(false)

	start := time.Now()
	sink := &tickSink[C]{sub: s}
	err := s.source.Poll(ctx, s.Cursor(), sink)

	s.metrics.observeTick(s.Key(), err, time.Since(start))
	if err != nil {
		return sink.delivered, err
	}
	if len(sink.delivered) > 0 {
		s.logger.Debug("tick complete",
			zap.Int("delivered", len(sink.delivered)),
			zap.Duration("took", time.Since(start)),
		)
	}
	return sink.delivered, nil
}

// Start ticks immediately and then every interval until Stop is called or
// ctx is done. Tick errors are logged and the next tick retries.
func (s *Subscriber[C]) Start(ctx context.Context, interval time.Duration) error {
	s.mu.Lock()
	if s.sched != nil {
		s.mu.Unlock()
		return ErrStarted
	}
	s.sched = NewScheduler(s.Key(), func(ctx context.Context) error {
		_, err := s.Poll(ctx)
		return err
	}, s.logger, s.metrics)
	sched := s.sched
	s.mu.Unlock()

	return sched.Start(ctx, interval)
}

// Stop prevents further ticks. A tick in progress runs to completion;
// call Wait to block until it has.
func (s *Subscriber[C]) Stop() {
	s.mu.RLock()
	sched := s.sched
	s.mu.RUnlock()
	if sched != nil {
		sched.Stop()
	}
}

// Wait blocks until no tick is running.
func (s *Subscriber[C]) Wait() {
	s.mu.RLock()
	sched := s.sched
	s.mu.RUnlock()
	if sched != nil {
		sched.Wait()
	}
}

func (s *Subscriber[C]) commit(ctx context.Context, c C) error {
	s.mu.Lock()
	s.cursor = c
	s.mu.Unlock()

	pos := s.source.Encode(c)
	if s.store != nil {
		pos.UpdatedAt = time.Now().UTC()
		if err := s.store.Save(ctx, s.Key(), pos); err != nil {
			return fmt.Errorf("watcher: save cursor %s: %w", s.Key(), err)
		}
	}
	s.metrics.observeCursor(s.Key(), pos)
	if s.onCommit != nil {
		s.onCommit(c)
	}
	return nil
}

// tickSink collects one tick's deliveries.
type tickSink[C comparable] struct {
	sub       *Subscriber[C]
	delivered []event.Transaction
}

func (t *tickSink[C]) Deliver(ctx context.Context, tx event.Transaction) error {
	if err := t.sub.handler(ctx, tx); err != nil {
		return fmt.Errorf("watcher: handler at lt %d: %w", tx.LT, err)
	}
	t.delivered = append(t.delivered, tx)
	t.sub.metrics.observeDelivered(t.sub.Key())
	return nil
}

func (t *tickSink[C]) Commit(ctx context.Context, c C) error {
	return t.sub.commit(ctx, c)
}
