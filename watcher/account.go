package watcher

import (
	"context"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"go.uber.org/zap"

	"github.com/hedeqiang/tonwatch/chain"
	"github.com/hedeqiang/tonwatch/cursor"
	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/retry"
)

// DefaultPageSize is the number of transactions requested per history page.
const DefaultPageSize = 20

// AccountSource streams one account's transactions in logical-time order.
// Its cursor is the id of the last delivered transaction.
//
// With a zero cursor the first tick walks the account's entire history back
// to its first transaction and delivers all of it. Seed Config.Start to
// bound the catch-up.
type AccountSource struct {
	query    chain.Query
	account  *address.Address
	pageSize int
	retry    retry.Policy
	logger   *zap.Logger
}

// AccountOption configures an AccountSource.
type AccountOption func(*AccountSource)

// WithPageSize sets the number of transactions requested per page.
func WithPageSize(n int) AccountOption {
	return func(s *AccountSource) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithAccountRetry sets the policy applied to every history request.
func WithAccountRetry(p retry.Policy) AccountOption {
	return func(s *AccountSource) {
		s.retry = p
	}
}

// WithAccountLogger sets the logger.
func WithAccountLogger(l *zap.Logger) AccountOption {
	return func(s *AccountSource) {
		s.logger = l
	}
}

// NewAccountSource parses account and returns a source over its history.
func NewAccountSource(q chain.Query, account string, opts ...AccountOption) (*AccountSource, error) {
	addr, err := address.ParseAddr(account)
	if err != nil {
		if addr, err = address.ParseRawAddr(account); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, account, err)
		}
	}
	s := &AccountSource{
		query:    q,
		account:  addr,
		pageSize: DefaultPageSize,
		retry:    retry.Policy{Strategy: retry.Linear(10, defaultRetryStep)},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Account returns the watched address.
func (s *AccountSource) Account() *address.Address {
	return s.account
}

// Key implements Source.
func (s *AccountSource) Key() string {
	return s.query.ID() + ":account:" + s.account.String()
}

// Encode implements Source.
func (s *AccountSource) Encode(id event.TxID) cursor.Position {
	return cursor.FromTxID(id)
}

// Decode implements Source.
func (s *AccountSource) Decode(p cursor.Position) (event.TxID, error) {
	return p.TxID()
}

// Poll pages back from the newest transaction until it reaches from, then
// delivers the collected transactions oldest first, committing after each.
// A failed page aborts the tick before anything is delivered.
func (s *AccountSource) Poll(ctx context.Context, from event.TxID, sink Sink[event.TxID]) error {
	pending, err := s.collect(ctx, from)
	if err != nil {
		return err
	}

	for i := len(pending) - 1; i >= 0; i-- {
		tx := pending[i]
		if err := sink.Deliver(ctx, tx); err != nil {
			return err
		}
		if err := sink.Commit(ctx, tx.ID()); err != nil {
			return err
		}
	}
	return nil
}

// collect returns the transactions newer than from, newest first.
func (s *AccountSource) collect(ctx context.Context, from event.TxID) ([]event.Transaction, error) {
	var (
		pending []event.Transaction
		before  event.TxID
	)
	for {
		page, err := retry.Value(ctx, s.retry, "account transactions", func(ctx context.Context) ([]event.Transaction, error) {
			return s.query.AccountTransactions(ctx, s.account, s.pageSize, before)
		})
		if err != nil {
			return nil, fmt.Errorf("watcher: %s before %s: %w", s.account, before, err)
		}

		reached := false
		for _, tx := range page {
			if seen(tx, from) {
				reached = true
				break
			}
			pending = append(pending, tx)
		}
		if reached || len(page) < s.pageSize {
			return pending, nil
		}

		oldest := page[len(page)-1].ID()
		if !before.IsZero() && oldest.LT >= before.LT {
			return nil, fmt.Errorf("%w: %s after %s", ErrNonMonotonic, oldest, before)
		}
		before = oldest

		s.logger.Debug("fetching older page",
			zap.String("account", s.account.String()),
			zap.Uint64("before_lt", before.LT),
			zap.Int("collected", len(pending)),
		)
	}
}

// seen reports whether tx is at or behind the resume cursor.
func seen(tx event.Transaction, from event.TxID) bool {
	if from.IsZero() {
		return false
	}
	return tx.ID().Equal(from) || tx.LT <= from.LT
}
