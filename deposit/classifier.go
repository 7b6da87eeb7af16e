package deposit

import (
	"fmt"

	"github.com/xssnick/tonutils-go/address"

	"github.com/hedeqiang/tonwatch/decoder"
	"github.com/hedeqiang/tonwatch/event"
)

// Jetton describes a jetton accepted as payment.
type Jetton struct {
	Symbol   string
	Decimals int32
}

// Classifier decides which transactions of a wallet are deposits.
type Classifier struct {
	wallet  *address.Address
	jettons map[string]Jetton
	decoder *decoder.Decoder
}

// NewClassifier creates a classifier for wallet. jettons maps the wallet's
// own jetton wallet addresses to the jetton they hold; transfer
// notifications from any other sender are ignored.
func NewClassifier(wallet string, jettons map[string]Jetton) (*Classifier, error) {
	w, err := parseAddr(wallet)
	if err != nil {
		return nil, fmt.Errorf("deposit: wallet %q: %w", wallet, err)
	}
	c := &Classifier{
		wallet:  w,
		jettons: make(map[string]Jetton, len(jettons)),
		decoder: decoder.New(),
	}
	for s, j := range jettons {
		a, err := parseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("deposit: jetton wallet %q: %w", s, err)
		}
		c.jettons[a.StringRaw()] = j
	}
	return c, nil
}

// Wallet returns the receiving wallet.
func (c *Classifier) Wallet() *address.Address {
	return c.wallet
}

// Classify returns the deposit carried by tx, if any.
//
// A deposit is an internal inbound message to the wallet whose transaction
// produced no outbound messages: an outbound message means the value was
// bounced back or forwarded, so nothing was received. Payloads that fail
// to decode are not deposits.
func (c *Classifier) Classify(tx event.Transaction) (*Deposit, bool) {
	if !tx.IsInternalIn() || tx.OutMsgCount != 0 || tx.In.Bounced {
		return nil, false
	}
	if tx.Account == nil || tx.Account.StringRaw() != c.wallet.StringRaw() {
		return nil, false
	}

	payload, err := c.decoder.Decode(tx.In)
	if err != nil {
		return nil, false
	}

	d := &Deposit{
		TxHash: tx.Hash,
		LT:     tx.LT,
		Time:   tx.Now,
	}

	if j, ok := c.jettons[tx.In.Source.StringRaw()]; ok {
		if payload.Kind != decoder.KindJettonNotification || payload.Jetton.Amount.Sign() <= 0 {
			return nil, false
		}
		d.Kind = KindJetton
		d.Asset = j.Symbol
		d.Decimals = j.Decimals
		d.From = payload.Jetton.Sender
		d.Amount = payload.Jetton.Amount
		d.Comment = payload.Jetton.Comment
		return d, true
	}

	// A notification from an unknown sender is a forged jetton, and its
	// attached TON only covers forwarding fees.
	if payload.Kind == decoder.KindJettonNotification {
		return nil, false
	}
	if tx.In.Value == nil || tx.In.Value.Sign() <= 0 {
		return nil, false
	}
	d.Kind = KindTON
	d.Asset = "TON"
	d.Decimals = TONDecimals
	d.From = tx.In.Source
	d.Amount = tx.In.Value
	if payload.Kind == decoder.KindComment {
		d.Comment = payload.Comment
	}
	return d, true
}

func parseAddr(s string) (*address.Address, error) {
	a, err := address.ParseAddr(s)
	if err == nil {
		return a, nil
	}
	return address.ParseRawAddr(s)
}
