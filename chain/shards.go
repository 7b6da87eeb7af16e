package chain

import (
	"context"
	"fmt"

	"github.com/hedeqiang/tonwatch/event"
)

// maxShardWalk bounds how far back NewShardBlocks follows one shard.
const maxShardWalk = 64

// ParentsFunc returns the blocks a shard block was built on: one, or two
// after a merge.
type ParentsFunc func(ctx context.Context, block event.Shard) ([]event.Shard, error)

// NewShardBlocks returns the shard blocks first committed by a masterchain
// block, parents before children. tops are the shard blocks that
// masterchain block references and prev those of the one before it. A top
// already in prev is left out, and blocks produced between two masterchain
// blocks are found by walking parents back to prev. Without prev, tops are
// returned as they are.
func NewShardBlocks(ctx context.Context, tops, prev []event.Shard, parents ParentsFunc) ([]event.Shard, error) {
	if len(prev) == 0 {
		return tops, nil
	}

	var (
		out     []event.Shard
		visited = make(map[event.Shard]bool)
		walk    func(b event.Shard, depth int) error
	)
	walk = func(b event.Shard, depth int) error {
		if visited[b] || committed(b, prev) {
			return nil
		}
		if depth >= maxShardWalk {
			return fmt.Errorf("chain: shard %s: more than %d blocks behind the previous masterchain block", b, maxShardWalk)
		}
		visited[b] = true

		ps, err := parents(ctx, b)
		if err != nil {
			return err
		}
		for _, p := range ps {
			if err := walk(p, depth+1); err != nil {
				return err
			}
		}
		out = append(out, b)
		return nil
	}

	for _, top := range tops {
		if err := walk(top, 0); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// committed reports whether b is at or behind a shard block of prev.
func committed(b event.Shard, prev []event.Shard) bool {
	for _, p := range prev {
		if p.Overlaps(b) && p.SeqNo >= b.SeqNo {
			return true
		}
	}
	return false
}
