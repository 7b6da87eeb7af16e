// Package deposit recognises incoming payments among watched transactions
// and books them idempotently.
package deposit

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xssnick/tonutils-go/address"

	"github.com/hedeqiang/tonwatch/event"
)

// Kind is the asset class of a deposit.
type Kind string

const (
	KindTON    Kind = "ton"
	KindJetton Kind = "jetton"
)

// TONDecimals is the number of decimals of the native coin.
const TONDecimals = 9

// Deposit is an accepted incoming payment.
type Deposit struct {
	Kind  Kind
	Asset string

	TxHash event.Hash
	LT     uint64
	Time   time.Time

	// From is the paying wallet. For jettons it is the owner of the
	// sending jetton wallet, not the jetton wallet itself.
	From *address.Address

	// Amount is in base units of the asset.
	Amount   *big.Int
	Decimals int32

	// Comment is the text comment of the payment, typically an order or user reference.
	Comment string
}

// Value returns the amount in whole units of the asset.
func (d *Deposit) Value() decimal.Decimal {
	return decimal.NewFromBigInt(d.Amount, -d.Decimals)
}

// Message returns the JSON-friendly form published to brokers.
func (d *Deposit) Message() map[string]any {
	from := ""
	if d.From != nil {
		from = d.From.String()
	}
	return map[string]any{
		"kind":    d.Kind,
		"asset":   d.Asset,
		"tx_hash": d.TxHash.HexBare(),
		"lt":      d.LT,
		"time":    d.Time.Unix(),
		"from":    from,
		"amount":  d.Amount.String(),
		"value":   d.Value().String(),
		"comment": d.Comment,
	}
}
