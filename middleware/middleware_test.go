package middleware

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/filter"
)

var errHandler = errors.New("handler failed")

func account() *address.Address {
	return address.NewAddress(0, 0, make([]byte, 32))
}

func tx(lt uint64) event.Transaction {
	var h event.Hash
	h[0] = byte(lt)
	return event.Transaction{Account: account(), LT: lt, Hash: h}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return Func(func(next event.Handler) event.Handler {
			return func(ctx context.Context, tx event.Transaction) error {
				order = append(order, name)
				return next(ctx, tx)
			}
		})
	}
	h := Chain(func(context.Context, event.Transaction) error {
		order = append(order, "handler")
		return nil
	}, mw("a"), mw("b"))

	require.NoError(t, h(context.Background(), tx(1)))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewLogger(zap.New(core)).Wrap(func(_ context.Context, tx event.Transaction) error {
		if tx.LT == 2 {
			return errHandler
		}
		return nil
	})

	in := tx(1)
	in.In = &event.Message{Source: account(), Value: big.NewInt(5)}
	require.NoError(t, h(context.Background(), in))
	assert.ErrorIs(t, h(context.Background(), tx(2)), errHandler)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "5", entries[0].ContextMap()["value"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, uint64(2), entries[1].ContextMap()["lt"])
}

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	h := m.Wrap(func(_ context.Context, tx event.Transaction) error {
		if tx.LT%2 == 0 {
			return errHandler
		}
		return nil
	})
	for lt := uint64(1); lt <= 5; lt++ {
		_ = h(context.Background(), tx(lt))
	}
	assert.Equal(t, float64(3), testutil.ToFloat64(m.processed))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.failed))
}

func TestDedupRecordsOnlySuccess(t *testing.T) {
	d, err := NewDedup(16)
	require.NoError(t, err)

	calls := 0
	fail := true
	h := d.Wrap(func(context.Context, event.Transaction) error {
		calls++
		if fail {
			return errHandler
		}
		return nil
	})

	assert.ErrorIs(t, h(context.Background(), tx(1)), errHandler)
	fail = false
	require.NoError(t, h(context.Background(), tx(1)))
	require.NoError(t, h(context.Background(), tx(1)))
	require.NoError(t, h(context.Background(), tx(2)))
	assert.Equal(t, 3, calls)
}

func TestDedupPerHandler(t *testing.T) {
	d, err := NewDedup(16)
	require.NoError(t, err)

	var account, block int
	accountH := d.Wrap(func(context.Context, event.Transaction) error { account++; return nil })
	blockH := d.Wrap(func(context.Context, event.Transaction) error { block++; return nil })

	require.NoError(t, accountH(context.Background(), tx(1)))
	require.NoError(t, blockH(context.Background(), tx(1)))
	require.NoError(t, blockH(context.Background(), tx(1)))
	assert.Equal(t, 1, account)
	assert.Equal(t, 1, block)

	_, err = NewDedup(0)
	assert.Error(t, err)
}

func TestThrottle(t *testing.T) {
	h := NewThrottle(1, 1).Wrap(func(context.Context, event.Transaction) error { return nil })
	require.NoError(t, h(context.Background(), tx(1)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, h(ctx, tx(2)), "second call within a second must wait past the deadline")
}

func TestFilter(t *testing.T) {
	var got []uint64
	h := NewFilter(filter.NoOutbound()).Wrap(func(_ context.Context, tx event.Transaction) error {
		got = append(got, tx.LT)
		return nil
	})

	bounced := tx(2)
	bounced.OutMsgCount = 1
	require.NoError(t, h(context.Background(), tx(1)))
	require.NoError(t, h(context.Background(), bounced))
	assert.Equal(t, []uint64{1}, got)
}
