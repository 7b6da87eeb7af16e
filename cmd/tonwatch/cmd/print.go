package cmd

import (
	"encoding/json"
	"io"
	"time"

	"github.com/hedeqiang/tonwatch/decoder"
	"github.com/hedeqiang/tonwatch/event"
)

// txView is the JSON line printed for a transaction.
type txView struct {
	Account string           `json:"account"`
	LT      uint64           `json:"lt"`
	Hash    string           `json:"hash"`
	Time    time.Time        `json:"time"`
	Shard   string           `json:"shard,omitempty"`
	From    string           `json:"from,omitempty"`
	Value   string           `json:"value,omitempty"`
	Bounced bool             `json:"bounced,omitempty"`
	OutMsgs int              `json:"out_msgs"`
	Payload *decoder.Payload `json:"payload,omitempty"`
}

func newTxView(tx event.Transaction) txView {
	v := txView{
		LT:      tx.LT,
		Hash:    tx.Hash.HexBare(),
		Time:    tx.Now.UTC(),
		OutMsgs: tx.OutMsgCount,
	}
	if tx.Account != nil {
		v.Account = tx.Account.String()
	}
	if tx.Shard != nil {
		v.Shard = tx.Shard.String()
	}
	if in := tx.In; in != nil {
		if in.Source != nil {
			v.From = in.Source.String()
		}
		v.Value = in.Value.String()
		v.Bounced = in.Bounced
		// Undecodable bodies are printed without a payload.
		if p, err := decoder.Decode(in); err == nil {
			v.Payload = p
		}
	}
	return v
}

func printTx(w io.Writer, tx event.Transaction) error {
	return json.NewEncoder(w).Encode(newTxView(tx))
}
