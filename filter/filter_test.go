package filter

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/hedeqiang/tonwatch/event"
)

func addr(b byte) *address.Address {
	data := make([]byte, 32)
	data[0] = b
	return address.NewAddress(0, 0, data)
}

func inbound(from *address.Address, nano int64) event.Transaction {
	return event.Transaction{
		Account: addr(1),
		LT:      100,
		In:      &event.Message{Source: from, Destination: addr(1), Value: big.NewInt(nano)},
	}
}

func TestAccountFilterIgnoresFlags(t *testing.T) {
	a := addr(1)
	b := a.Copy()
	b.SetBounce(true)
	bounceable, err := address.ParseAddr(b.String())
	require.NoError(t, err)
	nb := a.Copy()
	nb.SetBounce(false)

	f := NewAccountFilter(bounceable)
	assert.True(t, f.Match(event.Transaction{Account: nb}))
	assert.False(t, f.Match(event.Transaction{Account: addr(2)}))
	assert.False(t, f.Match(event.Transaction{}))
}

func TestSourceFilter(t *testing.T) {
	f := NewSourceFilter(addr(5))
	assert.True(t, f.Match(inbound(addr(5), 1)))
	assert.False(t, f.Match(inbound(addr(6), 1)))
	assert.False(t, f.Match(event.Transaction{In: &event.Message{Value: new(big.Int)}}), "external message")
}

func TestInboundValueFilter(t *testing.T) {
	f := NewInboundValueFilter(big.NewInt(1_000_000_000))
	assert.True(t, f.Match(inbound(addr(2), 1_000_000_000)))
	assert.False(t, f.Match(inbound(addr(2), 999_999_999)))
	assert.False(t, f.Match(event.Transaction{}))
}

func TestNoOutbound(t *testing.T) {
	tx := inbound(addr(2), 1)
	assert.True(t, NoOutbound().Match(tx))
	tx.OutMsgCount = 1
	assert.False(t, NoOutbound().Match(tx))
}

func TestOpFilter(t *testing.T) {
	tx := inbound(addr(2), 1)
	tx.In.Body = cell.BeginCell().MustStoreUInt(0x7362d09c, 32).EndCell()

	assert.True(t, NewOpFilter(0x7362d09c).Match(tx))
	assert.False(t, NewOpFilter(0).Match(tx))

	tx.In.Body = cell.BeginCell().EndCell()
	assert.False(t, NewOpFilter(0).Match(tx), "body too short for an op")
}

func TestLTRange(t *testing.T) {
	from, to := uint64(10), uint64(20)
	f := NewLTRangeFilter(&from, &to)
	assert.True(t, f.Match(event.Transaction{LT: 10}))
	assert.True(t, f.Match(event.Transaction{LT: 20}))
	assert.False(t, f.Match(event.Transaction{LT: 21}))
	assert.True(t, NewLTRangeFilter(nil, nil).Match(event.Transaction{LT: 1}))
}

func TestComposite(t *testing.T) {
	yes := Func(func(event.Transaction) bool { return true })
	no := Not(yes)

	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"empty all", AllOf(), true},
		{"empty any", AnyOf(), true},
		{"all true", AllOf(yes, yes), true},
		{"all one false", AllOf(yes, no), false},
		{"any one true", AnyOf(no, yes), true},
		{"any none", AnyOf(no, no), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Match(event.Transaction{}))
		})
	}
}
