package watcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs a tick function immediately and then on every interval.
// Ticks never overlap: a firing while the previous tick is still running
// is dropped, not queued.
type Scheduler struct {
	name    string
	tick    func(ctx context.Context) error
	logger  *zap.Logger
	metrics *Metrics

	running atomic.Bool
	ticks   sync.WaitGroup

	mu       sync.Mutex
	stop     chan struct{}
	loopDone chan struct{}
	stopped  bool
}

// NewScheduler creates a scheduler for tick. logger and metrics may be nil.
func NewScheduler(name string, tick func(ctx context.Context) error, logger *zap.Logger, metrics *Metrics) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		name:    name,
		tick:    tick,
		logger:  logger,
		metrics: metrics,
	}
}

// Start fires the first tick and returns. Ticks receive ctx; cancelling it
// also ends the schedule.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("watcher: interval must be positive")
	}

	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return ErrStarted
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.loopDone = stop, done
	s.mu.Unlock()

	s.fire(ctx)

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.fire(ctx)
			}
		}
	}()
	return nil
}

// Stop cancels the timer. It does not interrupt a running tick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stop == nil || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stop)
	done := s.loopDone
	s.mu.Unlock()

	<-done
}

// Wait blocks until the in-flight tick, if any, has returned.
func (s *Scheduler) Wait() {
	s.ticks.Wait()
}

func (s *Scheduler) fire(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.dropped()
		return
	}
	s.ticks.Add(1)
	go func() {
		defer s.ticks.Done()
		defer s.running.Store(false)

		err := s.tick(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrBusy):
			s.dropped()
		case errors.Is(err, context.Canceled):
			s.logger.Debug("tick cancelled")
		default:
			s.logger.Warn("tick failed", zap.Error(err))
		}
	}()
}

func (s *Scheduler) dropped() {
	s.logger.Debug("tick still running, dropping firing")
	s.metrics.observeDropped(s.name)
}
