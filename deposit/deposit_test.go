package deposit

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/hedeqiang/tonwatch/event"
)

func addr(b byte) *address.Address {
	data := make([]byte, 32)
	data[31] = b
	return address.NewAddress(0, 0, data)
}

var (
	wallet       = addr(1)
	payer        = addr(2)
	jettonWallet = addr(3)
)

func comment(t *testing.T, text string) *cell.Cell {
	t.Helper()
	b := cell.BeginCell().MustStoreUInt(0, 32)
	require.NoError(t, b.StoreStringSnake(text))
	return b.EndCell()
}

func jettonNotification(t *testing.T, amount int64, text string) *cell.Cell {
	t.Helper()
	b := cell.BeginCell().
		MustStoreUInt(0x7362d09c, 32).
		MustStoreUInt(1, 64).
		MustStoreBigCoins(big.NewInt(amount)).
		MustStoreAddr(payer).
		MustStoreBoolBit(true).
		MustStoreRef(comment(t, text))
	return b.EndCell()
}

func incoming(from *address.Address, nano int64, body *cell.Cell) event.Transaction {
	var h event.Hash
	h[0] = byte(nano)
	return event.Transaction{
		Account: wallet,
		LT:      500,
		Hash:    h,
		Now:     time.Unix(1700000000, 0),
		In: &event.Message{
			Source:      from,
			Destination: wallet,
			Value:       big.NewInt(nano),
			Body:        body,
		},
	}
}

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(wallet.String(), map[string]Jetton{
		jettonWallet.String(): {Symbol: "USDT", Decimals: 6},
	})
	require.NoError(t, err)
	return c
}

func TestClassifyTON(t *testing.T) {
	c := newClassifier(t)
	d, ok := c.Classify(incoming(payer, 1_500_000_000, comment(t, "user-17")))
	require.True(t, ok)
	assert.Equal(t, KindTON, d.Kind)
	assert.Equal(t, "TON", d.Asset)
	assert.Equal(t, "1.5", d.Value().String())
	assert.Equal(t, "user-17", d.Comment)
	assert.True(t, d.From.Equals(payer))
}

func TestClassifyJetton(t *testing.T) {
	c := newClassifier(t)
	d, ok := c.Classify(incoming(jettonWallet, 1, jettonNotification(t, 2_500_000, "order-9")))
	require.True(t, ok)
	assert.Equal(t, KindJetton, d.Kind)
	assert.Equal(t, "USDT", d.Asset)
	assert.Equal(t, "2.5", d.Value().String())
	assert.Equal(t, "order-9", d.Comment)
	assert.True(t, d.From.Equals(payer), "sender is the jetton owner")
}

func TestClassifyRejects(t *testing.T) {
	c := newClassifier(t)

	bounced := incoming(payer, 1_000, nil)
	bounced.OutMsgCount = 1

	returned := incoming(payer, 1_000, nil)
	returned.In.Bounced = true

	external := incoming(payer, 1_000, nil)
	external.In.Source = nil

	other := incoming(payer, 1_000, nil)
	other.Account = addr(9)

	malformed := incoming(payer, 1_000, cell.BeginCell().MustStoreUInt(0x7362d09c, 32).EndCell())

	tests := []struct {
		name string
		tx   event.Transaction
	}{
		{"one inbound one outbound", bounced},
		{"bounced message", returned},
		{"external message", external},
		{"other account", other},
		{"zero value", incoming(payer, 0, nil)},
		{"malformed payload", malformed},
		{"forged jetton", incoming(addr(7), 50_000_000, jettonNotification(t, 1_000_000, "x"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := c.Classify(tt.tx)
			assert.False(t, ok)
		})
	}
}

func TestNewClassifierInvalid(t *testing.T) {
	_, err := NewClassifier("nope", nil)
	assert.Error(t, err)
	_, err = NewClassifier(wallet.String(), map[string]Jetton{"bad": {}})
	assert.Error(t, err)
}

type fakeLedger struct {
	booked map[event.Hash]bool
	err    error
}

func (f *fakeLedger) Credit(_ context.Context, d *Deposit) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.booked[d.TxHash] {
		return false, nil
	}
	f.booked[d.TxHash] = true
	return true, nil
}

type fakePublisher struct {
	msgs []map[string]any
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, _, _ string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestHandler(t *testing.T) {
	ledger := &fakeLedger{booked: map[event.Hash]bool{}}
	pub := &fakePublisher{err: errors.New("broker down")}
	h := Handler(newClassifier(t), ledger, pub, "deposits", nil)

	tx := incoming(payer, 2_000_000_000, comment(t, "user-1"))
	assert.Error(t, h(context.Background(), tx), "broker failure is returned for redelivery")

	pub.err = nil
	require.NoError(t, h(context.Background(), tx))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "2", pub.msgs[0]["value"])
	assert.Equal(t, "user-1", pub.msgs[0]["comment"])
	assert.Len(t, ledger.booked, 1)

	require.NoError(t, h(context.Background(), incoming(payer, 0, nil)), "non-deposits are acknowledged")

	ledger.err = errors.New("db down")
	assert.ErrorIs(t, h(context.Background(), incoming(payer, 5, nil)), ledger.err)
}

func TestHandlerWithoutLedger(t *testing.T) {
	pub := &fakePublisher{}
	h := Handler(newClassifier(t), nil, pub, "deposits", nil)

	require.NoError(t, h(context.Background(), incoming(payer, 1_500_000_000, nil)))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "1.5", pub.msgs[0]["value"])
}

func TestLedger(t *testing.T) {
	dsn := os.Getenv("TONWATCH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TONWATCH_TEST_POSTGRES_DSN not set")
	}
	l, err := OpenLedger(dsn)
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	require.NoError(t, l.Migrate(ctx))
	require.NoError(t, l.db.Exec("DELETE FROM deposits WHERE comment = ?", "ledger-test").Error)

	d := &Deposit{Kind: KindTON, Asset: "TON", LT: 1, Amount: big.NewInt(700), Decimals: 9, Comment: "ledger-test", From: payer}
	d.TxHash[0] = 0xaa

	created, err := l.Credit(ctx, d)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = l.Credit(ctx, d)
	require.NoError(t, err)
	assert.False(t, created)

	bal, err := l.Balance(ctx, "TON", "ledger-test")
	require.NoError(t, err)
	assert.Equal(t, "700", bal.String())
}
