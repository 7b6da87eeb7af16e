// Package syncutil provides concurrency utilities.
package syncutil

import (
	"context"
	"sync"
)

// Group tracks goroutines that share one cancellation signal. Unlike
// errgroup it never cancels on failure: members run until Stop.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewGroup creates a new Group derived from the given context.
func NewGroup(ctx context.Context) *Group {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the group's context.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Go launches fn within the group and reports whether it was launched.
// It returns false once Stop has been called.
func (g *Group) Go(fn func(ctx context.Context)) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return false
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn(g.ctx)
	}()
	return true
}

// Stop cancels the group context and waits for all goroutines to finish.
func (g *Group) Stop() {
	_ = g.StopContext(context.Background())
}

// StopContext cancels the group context and waits for its goroutines
// until ctx is done, in which case ctx's error is returned and the
// goroutines are left to finish on their own.
func (g *Group) StopContext(ctx context.Context) error {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()
	g.cancel()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
