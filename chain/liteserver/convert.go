package liteserver

import (
	"math/big"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"

	"github.com/hedeqiang/tonwatch/event"
)

func toTransaction(account *address.Address, t *tlb.Transaction) event.Transaction {
	tx := event.Transaction{
		Account:     account,
		LT:          t.LT,
		Hash:        hashOf(t.Hash),
		Now:         time.Unix(int64(t.Now), 0).UTC(),
		OutMsgCount: int(t.OutMsgCount),
	}
	if t.IO.In != nil {
		tx.In = toMessage(t.IO.In)
	}
	return tx
}

func toMessage(m *tlb.Message) *event.Message {
	switch m.MsgType {
	case tlb.MsgTypeInternal:
		in := m.AsInternal()
		return &event.Message{
			Source:      in.SrcAddr,
			Destination: in.DstAddr,
			Value:       in.Amount.Nano(),
			Body:        in.Body,
			Bounce:      in.Bounce,
			Bounced:     in.Bounced,
			CreatedLT:   in.CreatedLT,
		}
	case tlb.MsgTypeExternalIn:
		ext := m.AsExternalIn()
		return &event.Message{
			Destination: ext.DstAddr,
			Value:       new(big.Int),
			Body:        ext.Body,
		}
	default:
		return &event.Message{Value: new(big.Int)}
	}
}
