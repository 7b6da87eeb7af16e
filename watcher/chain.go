package watcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hedeqiang/tonwatch/chain"
	"github.com/hedeqiang/tonwatch/cursor"
	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/retry"
)

const defaultRetryStep = time.Second

// ChainSource streams every transaction of the chain, one masterchain seqno
// at a time. Its cursor is the last seqno whose shards were all delivered;
// zero means none, and the first tick starts at the latest seqno.
type ChainSource struct {
	query  chain.Query
	retry  retry.Policy
	logger *zap.Logger
	until  uint32
}

// ChainOption configures a ChainSource.
type ChainOption func(*ChainSource)

// WithChainRetry sets the policy applied to every chain request.
func WithChainRetry(p retry.Policy) ChainOption {
	return func(s *ChainSource) {
		s.retry = p
	}
}

// WithChainLogger sets the logger.
func WithChainLogger(l *zap.Logger) ChainOption {
	return func(s *ChainSource) {
		s.logger = l
	}
}

// WithUntil stops the source at seqno instead of the chain head.
func WithUntil(seqno uint32) ChainOption {
	return func(s *ChainSource) {
		s.until = seqno
	}
}

// NewChainSource creates a source over every shard of q.
func NewChainSource(q chain.Query, opts ...ChainOption) *ChainSource {
	s := &ChainSource{
		query:  q,
		retry:  retry.Policy{Strategy: retry.Exponential(5)},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key implements Source.
func (s *ChainSource) Key() string {
	return s.query.ID() + ":chain"
}

// Encode implements Source.
func (s *ChainSource) Encode(seqno uint32) cursor.Position {
	return cursor.Position{SeqNo: seqno}
}

// Decode implements Source.
func (s *ChainSource) Decode(p cursor.Position) (uint32, error) {
	return p.SeqNo, nil
}

// Poll processes every seqno after last up to the chain head, committing
// each one only after all of its shards were delivered.
func (s *ChainSource) Poll(ctx context.Context, last uint32, sink Sink[uint32]) error {
	head, err := s.head(ctx)
	if err != nil {
		return err
	}
	if last == 0 {
		if head == 0 {
			return nil
		}
		last = head - 1
	}
	return s.advance(ctx, last, head, sink)
}

// head returns the latest seqno, bounded by WithUntil.
func (s *ChainSource) head(ctx context.Context) (uint32, error) {
	head, err := retry.Value(ctx, s.retry, "latest seqno", s.query.LatestSeqNo)
	if err != nil {
		return 0, fmt.Errorf("watcher: latest seqno: %w", err)
	}
	if s.until != 0 && head > s.until {
		head = s.until
	}
	return head, nil
}

func (s *ChainSource) advance(ctx context.Context, last, head uint32, sink Sink[uint32]) error {
	for n := last + 1; n <= head; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.process(ctx, n, sink); err != nil {
			return fmt.Errorf("watcher: seqno %d: %w", n, err)
		}
		if err := sink.Commit(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// process delivers the transactions of the masterchain block n and of
// every shard block it first commits.
func (s *ChainSource) process(ctx context.Context, n uint32, sink Sink[uint32]) error {
	reported, err := retry.Value(ctx, s.retry, "shards", func(ctx context.Context) ([]event.Shard, error) {
		return s.query.ShardsAt(ctx, n)
	})
	if err != nil {
		return err
	}
	shards := make([]event.Shard, 0, len(reported)+1)
	shards = append(shards, event.MasterAt(n))
	shards = append(shards, reported...)

	for _, shard := range shards {
		if err := s.drain(ctx, shard, sink); err != nil {
			return fmt.Errorf("shard %s: %w", shard, err)
		}
	}
	return nil
}

func (s *ChainSource) drain(ctx context.Context, shard event.Shard, sink Sink[uint32]) error {
	refs, err := retry.Value(ctx, s.retry, "shard transactions", func(ctx context.Context) ([]event.TxRef, error) {
		return s.query.ShardTransactions(ctx, shard)
	})
	if err != nil {
		return err
	}

	for _, ref := range refs {
		tx, err := retry.Value(ctx, s.retry, "transaction", func(ctx context.Context) (*event.Transaction, error) {
			return s.query.Transaction(ctx, ref)
		})
		if err != nil {
			return err
		}
		if tx == nil {
			s.logger.Warn("transaction not found, skipping",
				zap.Stringer("shard", shard),
				zap.Uint64("lt", ref.LT),
				zap.String("hash", ref.Hash.Hex()),
			)
			continue
		}
		ctxShard := shard
		tx.Shard = &ctxShard
		if err := sink.Deliver(ctx, *tx); err != nil {
			return err
		}
	}
	return nil
}
