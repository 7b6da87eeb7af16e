package watcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hedeqiang/tonwatch/chain"
	"github.com/hedeqiang/tonwatch/event"
)

// Replay delivers every transaction of a fixed seqno range and completes.
// Unlike a Subscriber it has no schedule and persists nothing, which makes
// it suitable for backfilling.
type Replay struct {
	query    chain.Query
	from, to uint32
	handler  event.Handler
	logger   *zap.Logger
	opts     []ChainOption
}

// NewReplay creates a replay of seqnos [from, to]. opts configure the
// underlying ChainSource.
func NewReplay(q chain.Query, from, to uint32, h event.Handler, logger *zap.Logger, opts ...ChainOption) (*Replay, error) {
	if from == 0 || from > to {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, from, to)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replay{
		query:   q,
		from:    from,
		to:      to,
		handler: h,
		logger:  logger,
		opts:    opts,
	}, nil
}

// Run replays the range. It returns the last seqno fully delivered, which
// is below to when the chain head is, or when an error interrupted it.
func (r *Replay) Run(ctx context.Context) (uint32, error) {
	opts := append([]ChainOption{WithChainLogger(r.logger)}, r.opts...)
	opts = append(opts, WithUntil(r.to))
	src := NewChainSource(r.query, opts...)

	sink := &replaySink{handler: r.handler, last: r.from - 1}
	r.logger.Info("replay started", zap.Uint32("from", r.from), zap.Uint32("to", r.to))

	head, err := src.head(ctx)
	if err == nil {
		err = src.advance(ctx, r.from-1, head, sink)
	}
	r.logger.Info("replay finished",
		zap.Uint32("last", sink.last),
		zap.Int("delivered", sink.delivered),
		zap.Error(err),
	)
	return sink.last, err
}

type replaySink struct {
	handler   event.Handler
	last      uint32
	delivered int
}

func (s *replaySink) Deliver(ctx context.Context, tx event.Transaction) error {
	if err := s.handler(ctx, tx); err != nil {
		return err
	}
	s.delivered++
	return nil
}

func (s *replaySink) Commit(_ context.Context, seqno uint32) error {
	s.last = seqno
	return nil
}
