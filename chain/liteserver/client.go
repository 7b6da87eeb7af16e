// Package liteserver implements chain.Query directly over TON liteservers.
package liteserver

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"

	"github.com/hedeqiang/tonwatch/chain"
	"github.com/hedeqiang/tonwatch/event"
)

const (
	// MainnetConfigURL is the global config listing public mainnet liteservers.
	MainnetConfigURL = "https://ton.org/global.config.json"
	// TestnetConfigURL is the testnet counterpart of MainnetConfigURL.
	TestnetConfigURL = "https://ton.org/testnet-global.config.json"

	blockPage      = 100
	listPage       = 16
	blockCacheSize = 4096
)

// API is the subset of ton.APIClientWrapped the client uses.
type API interface {
	GetMasterchainInfo(ctx context.Context) (*ton.BlockIDExt, error)
	CurrentMasterchainInfo(ctx context.Context) (*ton.BlockIDExt, error)
	LookupBlock(ctx context.Context, workchain int32, shard int64, seqno uint32) (*ton.BlockIDExt, error)
	GetBlockShardsInfo(ctx context.Context, master *ton.BlockIDExt) ([]*ton.BlockIDExt, error)
	GetBlockData(ctx context.Context, block *ton.BlockIDExt) (*tlb.Block, error)
	GetBlockTransactionsV2(ctx context.Context, block *ton.BlockIDExt, count uint32, after ...*ton.TransactionID3) ([]ton.TransactionShortInfo, bool, error)
	GetTransaction(ctx context.Context, block *ton.BlockIDExt, addr *address.Address, lt uint64) (*tlb.Transaction, error)
	GetAccount(ctx context.Context, block *ton.BlockIDExt, addr *address.Address) (*tlb.Account, error)
	ListTransactions(ctx context.Context, addr *address.Address, num uint32, lt uint64, txHash []byte) ([]*tlb.Transaction, error)
}

// Client is a liteserver chain implementation.
type Client struct {
	id     string
	api    API
	pool   *liteclient.ConnectionPool
	blocks *lru.Cache

	parents chain.ParentsFunc
}

// Dial connects to the liteservers listed in the global config at configURL.
func Dial(ctx context.Context, id, configURL string) (*Client, error) {
	if configURL == "" {
		configURL = MainnetConfigURL
	}
	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
		return nil, fmt.Errorf("liteserver: connect %s: %w", configURL, err)
	}
	c := NewWithAPI(id, ton.NewAPIClient(pool).WithRetry())
	c.pool = pool
	return c, nil
}

// NewWithAPI creates a client over an existing API.
func NewWithAPI(id string, api API) *Client {
	cache, err := lru.New(blockCacheSize)
	if err != nil {
		panic(err)
	}
	c := &Client{id: id, api: api, blocks: cache}
	c.parents = c.blockParents
	return c
}

// ID returns the network identifier.
func (c *Client) ID() string {
	return c.id
}

// Close stops the connection pool.
func (c *Client) Close() error {
	if c.pool != nil {
		c.pool.Stop()
	}
	return nil
}

// LatestSeqNo returns the latest masterchain seqno.
func (c *Client) LatestSeqNo(ctx context.Context) (uint32, error) {
	master, err := c.api.GetMasterchainInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("liteserver: masterchain info: %w", err)
	}
	c.remember(master)
	return master.SeqNo, nil
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
	master, err := c.block(ctx, event.MasterAt(seqno))
	if err != nil {
		return nil, err
	}
	blocks, err := c.api.GetBlockShardsInfo(ctx, master)
	if err != nil {
		return nil, fmt.Errorf("liteserver: shards of %d: %w", seqno, err)
	}
	shards := make([]event.Shard, 0, len(blocks))
	for _, b := range blocks {
		c.remember(b)
		shards = append(shards, toShard(b))
	}
	return shards, nil
}

func (c *Client) blockParents(ctx context.Context, s event.Shard) ([]event.Shard, error) {
	blk, err := c.block(ctx, s)
	if err != nil {
		return nil, err
	}
	data, err := c.api.GetBlockData(ctx, blk)
	if err != nil {
		return nil, fmt.Errorf("liteserver: block data %s: %w", s, err)
	}
	parents, err := data.BlockInfo.GetParentBlocks()
	if err != nil {
		return nil, fmt.Errorf("liteserver: parents of %s: %w", s, err)
	}
	out := make([]event.Shard, 0, len(parents))
	for _, p := range parents {
		id := &ton.BlockIDExt{Workchain: p.Workchain, Shard: p.Shard, SeqNo: p.SeqNo, RootHash: p.RootHash, FileHash: p.FileHash}
		c.remember(id)
		out = append(out, toShard(id))
	}
	return out, nil
}

// ShardTransactions lists every transaction of one shard block.
func (c *Client) ShardTransactions(ctx context.Context, shard event.Shard) ([]event.TxRef, error) {
	blk, err := c.block(ctx, shard)
	if err != nil {
		return nil, err
	}

	var (
		refs  []event.TxRef
		after *ton.TransactionID3
	)
	for {
		var (
			infos []ton.TransactionShortInfo
			more  bool
		)
		if after != nil {
			infos, more, err = c.api.GetBlockTransactionsV2(ctx, blk, blockPage, after)
		} else {
			infos, more, err = c.api.GetBlockTransactionsV2(ctx, blk, blockPage)
		}
		if err != nil {
			return nil, fmt.Errorf("liteserver: transactions of %s: %w", shard, err)
		}

		for _, info := range infos {
			ref := event.TxRef{
				Account: address.NewAddress(0, byte(blk.Workchain), info.Account),
				LT:      info.LT,
				Hash:    hashOf(info.Hash),
				Shard:   shard,
			}
			refs = append(refs, ref)
		}

		if !more || len(infos) == 0 {
			return refs, nil
		}
		last := infos[len(infos)-1]
		after = &ton.TransactionID3{Account: last.Account, LT: last.LT}
	}
}

// Transaction loads the full transaction behind ref.
func (c *Client) Transaction(ctx context.Context, ref event.TxRef) (*event.Transaction, error) {
	blk, err := c.block(ctx, ref.Shard)
	if err != nil {
		return nil, err
	}
	raw, err := c.api.GetTransaction(ctx, blk, ref.Account, ref.LT)
	if err != nil {
		if errors.Is(err, ton.ErrNoTransactionsWereFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("liteserver: transaction %d of %s: %w", ref.LT, ref.Account, err)
	}
	if raw == nil {
		return nil, nil
	}
	tx := toTransaction(ref.Account, raw)
	return &tx, nil
}

// AccountTransactions returns up to limit transactions older than before,
// newest first. Liteservers return at most 16 transactions per request,
// so longer pages are assembled from several requests.
func (c *Client) AccountTransactions(ctx context.Context, account *address.Address, limit int, before event.TxID) ([]event.Transaction, error) {
	if limit <= 0 {
		return nil, nil
	}

	lt, hash := before.LT, before.Hash[:]
	skip := !before.IsZero()
	if !skip {
		master, err := c.api.CurrentMasterchainInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("liteserver: masterchain info: %w", err)
		}
		acc, err := c.api.GetAccount(ctx, master, account)
		if err != nil {
			return nil, fmt.Errorf("liteserver: account %s: %w", account, err)
		}
		if acc.LastTxLT == 0 {
			return nil, nil
		}
		lt, hash = acc.LastTxLT, acc.LastTxHash
	}

	txs := make([]event.Transaction, 0, limit)
	for len(txs) < limit && lt != 0 {
		n := limit - len(txs)
		if skip {
			n++
		}
		if n > listPage {
			n = listPage
		}

		list, err := c.api.ListTransactions(ctx, account, uint32(n), lt, hash)
		if err != nil {
			if errors.Is(err, ton.ErrNoTransactionsWereFound) {
				break
			}
			return nil, fmt.Errorf("liteserver: list %s from %d: %w", account, lt, err)
		}
		if len(list) == 0 {
			break
		}

		// list is oldest first and starts at (lt, hash).
		for i := len(list) - 1; i >= 0 && len(txs) < limit; i-- {
			if skip {
				skip = false
				if list[i].LT == before.LT {
					continue
				}
			}
			txs = append(txs, toTransaction(account, list[i]))
		}
		lt, hash = list[0].PrevTxLT, list[0].PrevTxHash
	}
	return txs, nil
}

type blockKey struct {
	workchain int32
	shard     int64
	seqno     uint32
}

func (c *Client) remember(b *ton.BlockIDExt) {
	c.blocks.Add(blockKey{b.Workchain, b.Shard, b.SeqNo}, b)
}

// block resolves a shard descriptor to a full block id, consulting the cache first.
func (c *Client) block(ctx context.Context, s event.Shard) (*ton.BlockIDExt, error) {
	if v, ok := c.blocks.Get(blockKey{s.Workchain, s.Shard, s.SeqNo}); ok {
		return v.(*ton.BlockIDExt), nil
	}
	b, err := c.api.LookupBlock(ctx, s.Workchain, s.Shard, s.SeqNo)
	if err != nil {
		return nil, fmt.Errorf("liteserver: lookup %s: %w", s, err)
	}
	c.remember(b)
	return b, nil
}

func toShard(b *ton.BlockIDExt) event.Shard {
	return event.Shard{Workchain: b.Workchain, Shard: b.Shard, SeqNo: b.SeqNo}
}

func hashOf(b []byte) event.Hash {
	var h event.Hash
	copy(h[:], b)
	return h
}
