// Package toncenter provides the TON Center v2 JSON-RPC implementation of chain.Query.
package toncenter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xssnick/tonutils-go/address"

	"github.com/hedeqiang/tonwatch/chain"
	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/transport"
)

const (
	// MainnetURL is the public mainnet JSON-RPC endpoint.
	MainnetURL = "https://toncenter.com/api/v2/jsonRPC"
	// TestnetURL is the public testnet JSON-RPC endpoint.
	TestnetURL = "https://testnet.toncenter.com/api/v2/jsonRPC"

	defaultBlockPage = 256
	maxAccountPage   = 100
)

// Client is a TON Center chain implementation.
type Client struct {
	id        string
	transport transport.Transport
	blockPage int
}

// New creates a mainnet client with the given endpoint and API key.
// An empty endpoint selects MainnetURL.
func New(endpoint, apiKey string) *Client {
	return NewWithID("mainnet", endpoint, apiKey)
}

// NewWithID creates a client with a custom network ID. ws:// and wss://
// endpoints use the WebSocket transport. Without an API key requests are
// limited to one per second, the public endpoint's quota.
func NewWithID(id, endpoint, apiKey string) *Client {
	if endpoint == "" {
		endpoint = MainnetURL
	}
	var t transport.Transport
	if strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://") {
		t = transport.NewWebSocket(endpoint)
	} else {
		rps := 10.0
		if apiKey == "" {
			rps = 1
		}
		t = transport.NewHTTP(endpoint, transport.WithAPIKey(apiKey), transport.WithRateLimit(rps))
	}
	return NewWithTransport(id, t)
}

// NewWithTransport creates a client with a custom transport.
func NewWithTransport(id string, t transport.Transport) *Client {
	return &Client{
		id:        id,
		transport: t,
		blockPage: defaultBlockPage,
	}
}

// ID returns the network identifier.
func (c *Client) ID() string {
	return c.id
}

// Close closes the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// LatestSeqNo returns the latest masterchain seqno.
func (c *Client) LatestSeqNo(ctx context.Context) (uint32, error) {
	var info masterchainInfo
	if err := c.call(ctx, "getMasterchainInfo", nil, &info); err != nil {
		return 0, err
	}
	return info.Last.SeqNo, nil
}

// ShardsAt returns the shard blocks first committed by masterchain block
// seqno, found by comparing its shard tops with those of seqno-1.
func (c *Client) ShardsAt(ctx context.Context, seqno uint32) ([]event.Shard, error) {
	tops, err := c.shardTops(ctx, seqno)
	if err != nil {
		return nil, err
	}
	if seqno <= 1 {
		return tops, nil
	}
	prev, err := c.shardTops(ctx, seqno-1)
	if err != nil {
		return nil, err
	}
	return chain.NewShardBlocks(ctx, tops, prev, c.parents)
}

func (c *Client) shardTops(ctx context.Context, seqno uint32) ([]event.Shard, error) {
	var res shardsResult
	if err := c.call(ctx, "shards", map[string]any{"seqno": seqno}, &res); err != nil {
		return nil, err
	}
	shards := make([]event.Shard, len(res.Shards))
	for i, b := range res.Shards {
		shards[i] = b.toShard()
	}
	return shards, nil
}

func (c *Client) parents(ctx context.Context, shard event.Shard) ([]event.Shard, error) {
	params := map[string]any{
		"workchain": shard.Workchain,
		"shard":     shard.Shard,
		"seqno":     shard.SeqNo,
	}
	var res blockHeader
	if err := c.call(ctx, "getBlockHeader", params, &res); err != nil {
		return nil, err
	}
	out := make([]event.Shard, len(res.PrevBlocks))
	for i, b := range res.PrevBlocks {
		out[i] = b.toShard()
	}
	return out, nil
}

// ShardTransactions lists every transaction of one shard block, following
// "incomplete" pages.
func (c *Client) ShardTransactions(ctx context.Context, shard event.Shard) ([]event.TxRef, error) {
	var (
		refs  []event.TxRef
		after *event.TxRef
	)
	for {
		params := map[string]any{
			"workchain": shard.Workchain,
			"shard":     shard.Shard,
			"seqno":     shard.SeqNo,
			"count":     c.blockPage,
		}
		if after != nil {
			params["after_lt"] = after.LT
			params["after_hash"] = base64.StdEncoding.EncodeToString(after.Account.Data())
		}

		var res blockTransactions
		if err := c.call(ctx, "getBlockTransactions", params, &res); err != nil {
			return nil, err
		}

		for i, tx := range res.Transactions {
			ref, err := tx.toRef(shard)
			if err != nil {
				return nil, fmt.Errorf("toncenter: block %s tx %d: %w", shard, i, err)
			}
			refs = append(refs, ref)
		}

		if !res.Incomplete || len(res.Transactions) == 0 {
			return refs, nil
		}
		last := refs[len(refs)-1]
		after = &last
	}
}

// Transaction loads the full transaction behind ref.
func (c *Client) Transaction(ctx context.Context, ref event.TxRef) (*event.Transaction, error) {
	params := map[string]any{
		"address":  ref.Account.String(),
		"limit":    1,
		"lt":       ref.LT,
		"hash":     ref.Hash.Base64(),
		"archival": true,
	}
	var raws []rawTransaction
	if err := c.call(ctx, "getTransactions", params, &raws); err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, nil
	}
	tx, err := raws[0].toTransaction(ref.Account)
	if err != nil {
		return nil, fmt.Errorf("toncenter: convert %s: %w", ref.Hash.Hex(), err)
	}
	if tx.LT != ref.LT {
		return nil, nil
	}
	return &tx, nil
}

// AccountTransactions returns up to limit transactions older than before,
// newest first. TON Center caps a request at 100 transactions, so larger
// limits are filled over several requests.
func (c *Client) AccountTransactions(ctx context.Context, account *address.Address, limit int, before event.TxID) ([]event.Transaction, error) {
	var txs []event.Transaction
	for len(txs) < limit {
		n := limit - len(txs)
		if n > maxAccountPage-1 {
			n = maxAccountPage - 1
		}
		page, err := c.transactionsPage(ctx, account, n, before)
		if err != nil {
			return nil, err
		}
		txs = append(txs, page...)
		if len(page) < n {
			break
		}
		before = page[len(page)-1].ID()
	}
	return txs, nil
}

// transactionsPage makes one getTransactions request. TON Center pages
// inclusively, so one extra transaction is requested and the boundary
// dropped.
func (c *Client) transactionsPage(ctx context.Context, account *address.Address, n int, before event.TxID) ([]event.Transaction, error) {
	params := map[string]any{
		"address":  account.String(),
		"limit":    n,
		"archival": true,
	}
	if !before.IsZero() {
		params["limit"] = n + 1
		params["lt"] = before.LT
		params["hash"] = before.Hash.Base64()
	}

	var raws []rawTransaction
	if err := c.call(ctx, "getTransactions", params, &raws); err != nil {
		return nil, err
	}

	txs := make([]event.Transaction, 0, len(raws))
	for i, raw := range raws {
		tx, err := raw.toTransaction(account)
		if err != nil {
			return nil, fmt.Errorf("toncenter: convert transaction %d: %w", i, err)
		}
		if !before.IsZero() && tx.LT >= before.LT {
			continue
		}
		txs = append(txs, tx)
	}
	if len(txs) > n {
		txs = txs[:n]
	}
	return txs, nil
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	result, err := c.transport.Call(ctx, method, params)
	if err != nil {
		return fmt.Errorf("toncenter: %s: %w", method, err)
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("toncenter: parse %s: %w", method, err)
	}
	return nil
}
