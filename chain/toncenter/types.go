package toncenter

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/hedeqiang/tonwatch/event"
)

// int64String decodes integers TON Center sends either quoted or bare.
type int64String int64

func (n *int64String) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("parse integer %q: %w", b, err)
	}
	*n = int64String(v)
	return nil
}

type uint64String uint64

func (n *uint64String) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("parse integer %q: %w", b, err)
	}
	*n = uint64String(v)
	return nil
}

type blockIDExt struct {
	Workchain int32       `json:"workchain"`
	Shard     int64String `json:"shard"`
	SeqNo     uint32      `json:"seqno"`
	RootHash  string      `json:"root_hash"`
	FileHash  string      `json:"file_hash"`
}

func (b blockIDExt) toShard() event.Shard {
	return event.Shard{Workchain: b.Workchain, Shard: int64(b.Shard), SeqNo: b.SeqNo}
}

type masterchainInfo struct {
	Last blockIDExt `json:"last"`
}

type shardsResult struct {
	Shards []blockIDExt `json:"shards"`
}

type blockHeader struct {
	PrevBlocks []blockIDExt `json:"prev_blocks"`
}

type shortTxID struct {
	Mode    int          `json:"mode"`
	Account string       `json:"account"`
	LT      uint64String `json:"lt"`
	Hash    string       `json:"hash"`
}

func (s shortTxID) toRef(shard event.Shard) (event.TxRef, error) {
	addr, err := parseAddr(s.Account)
	if err != nil {
		return event.TxRef{}, err
	}
	h, err := event.HashFromBase64(s.Hash)
	if err != nil {
		return event.TxRef{}, err
	}
	return event.TxRef{Account: addr, LT: uint64(s.LT), Hash: h, Shard: shard}, nil
}

type blockTransactions struct {
	ReqCount     int         `json:"req_count"`
	Incomplete   bool        `json:"incomplete"`
	Transactions []shortTxID `json:"transactions"`
}

type transactionID struct {
	LT   uint64String `json:"lt"`
	Hash string       `json:"hash"`
}

type msgData struct {
	Type string `json:"@type"`
	Body string `json:"body"`
	Text string `json:"text"`
}

type rawMessage struct {
	Source      string       `json:"source"`
	Destination string       `json:"destination"`
	Value       string       `json:"value"`
	CreatedLT   uint64String `json:"created_lt"`
	Bounce      bool         `json:"bounce"`
	Bounced     bool         `json:"bounced"`
	MsgData     msgData      `json:"msg_data"`
}

type rawTransaction struct {
	Address struct {
		AccountAddress string `json:"account_address"`
	} `json:"address"`
	UTime         int64           `json:"utime"`
	TransactionID transactionID   `json:"transaction_id"`
	InMsg         *rawMessage     `json:"in_msg"`
	OutMsgs       json.RawMessage `json:"out_msgs"`
}

func (rt *rawTransaction) toTransaction(account *address.Address) (event.Transaction, error) {
	var tx event.Transaction

	tx.Account = account
	if tx.Account == nil && rt.Address.AccountAddress != "" {
		addr, err := parseAddr(rt.Address.AccountAddress)
		if err != nil {
			return tx, fmt.Errorf("parse account: %w", err)
		}
		tx.Account = addr
	}

	tx.LT = uint64(rt.TransactionID.LT)
	h, err := event.HashFromBase64(rt.TransactionID.Hash)
	if err != nil {
		return tx, fmt.Errorf("parse hash: %w", err)
	}
	tx.Hash = h
	tx.Now = time.Unix(rt.UTime, 0).UTC()

	var outs []json.RawMessage
	if len(rt.OutMsgs) > 0 && string(rt.OutMsgs) != "null" {
		if err := json.Unmarshal(rt.OutMsgs, &outs); err != nil {
			return tx, fmt.Errorf("parse out_msgs: %w", err)
		}
	}
	tx.OutMsgCount = len(outs)

	if rt.InMsg != nil {
		msg, err := rt.InMsg.toMessage()
		if err != nil {
			return tx, fmt.Errorf("parse in_msg: %w", err)
		}
		tx.In = msg
	}
	return tx, nil
}

func (rm *rawMessage) toMessage() (*event.Message, error) {
	msg := &event.Message{
		Value:     new(big.Int),
		Bounce:    rm.Bounce,
		Bounced:   rm.Bounced,
		CreatedLT: uint64(rm.CreatedLT),
	}

	if rm.Source != "" {
		addr, err := parseAddr(rm.Source)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		msg.Source = addr
	}
	if rm.Destination != "" {
		addr, err := parseAddr(rm.Destination)
		if err != nil {
			return nil, fmt.Errorf("destination: %w", err)
		}
		msg.Destination = addr
	}
	if rm.Value != "" {
		if _, ok := msg.Value.SetString(rm.Value, 10); !ok {
			return nil, fmt.Errorf("value %q", rm.Value)
		}
	}

	msg.Body = rm.MsgData.body()
	return msg, nil
}

// body returns the message body cell. Payloads that fail to parse are
// treated as absent.
func (d msgData) body() *cell.Cell {
	switch d.Type {
	case "msg.dataRaw":
		if d.Body == "" {
			return nil
		}
		boc, err := base64.StdEncoding.DecodeString(d.Body)
		if err != nil {
			return nil
		}
		c, err := cell.FromBOC(boc)
		if err != nil {
			return nil
		}
		return c
	case "msg.dataText":
		text, err := base64.StdEncoding.DecodeString(d.Text)
		if err != nil {
			return nil
		}
		b := cell.BeginCell().MustStoreUInt(0, 32)
		if err := b.StoreStringSnake(string(text)); err != nil {
			return nil
		}
		return b.EndCell()
	default:
		return nil
	}
}

// parseAddr accepts both user-friendly and raw ("wc:hex") forms.
func parseAddr(s string) (*address.Address, error) {
	if strings.Contains(s, ":") {
		return address.ParseRawAddr(s)
	}
	return address.ParseAddr(s)
}
