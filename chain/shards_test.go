package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedeqiang/tonwatch/event"
)

func shardAt(shard int64, seqno uint32) event.Shard {
	return event.Shard{Workchain: 0, Shard: shard, SeqNo: seqno}
}

// linear links every block to the one before it in the same shard.
func linear(_ context.Context, b event.Shard) ([]event.Shard, error) {
	return []event.Shard{{Workchain: b.Workchain, Shard: b.Shard, SeqNo: b.SeqNo - 1}}, nil
}

func TestNewShardBlocksIntermediate(t *testing.T) {
	prev := []event.Shard{shardAt(event.RootShard, 10)}
	tops := []event.Shard{shardAt(event.RootShard, 13)}

	got, err := NewShardBlocks(context.Background(), tops, prev, linear)
	require.NoError(t, err)
	assert.Equal(t, []event.Shard{
		shardAt(event.RootShard, 11),
		shardAt(event.RootShard, 12),
		shardAt(event.RootShard, 13),
	}, got)
}

func TestNewShardBlocksSkipsUnchangedShard(t *testing.T) {
	left, right := int64(0x4000000000000000), int64(-0x4000000000000000)
	prev := []event.Shard{shardAt(left, 20), shardAt(right, 30)}
	tops := []event.Shard{shardAt(left, 20), shardAt(right, 31)}

	got, err := NewShardBlocks(context.Background(), tops, prev, linear)
	require.NoError(t, err)
	assert.Equal(t, []event.Shard{shardAt(right, 31)}, got)
}

func TestNewShardBlocksSplitAndMerge(t *testing.T) {
	left, right := int64(0x4000000000000000), int64(-0x4000000000000000)

	split := func(_ context.Context, b event.Shard) ([]event.Shard, error) {
		return []event.Shard{shardAt(event.RootShard, 50)}, nil
	}
	got, err := NewShardBlocks(context.Background(),
		[]event.Shard{shardAt(left, 51), shardAt(right, 51)},
		[]event.Shard{shardAt(event.RootShard, 50)},
		split,
	)
	require.NoError(t, err)
	assert.Equal(t, []event.Shard{shardAt(left, 51), shardAt(right, 51)}, got)

	merge := func(_ context.Context, b event.Shard) ([]event.Shard, error) {
		if b.Shard == event.RootShard {
			return []event.Shard{shardAt(left, 61), shardAt(right, 62)}, nil
		}
		return linear(context.Background(), b)
	}
	got, err = NewShardBlocks(context.Background(),
		[]event.Shard{shardAt(event.RootShard, 63)},
		[]event.Shard{shardAt(left, 60), shardAt(right, 61)},
		merge,
	)
	require.NoError(t, err)
	assert.Equal(t, []event.Shard{
		shardAt(left, 61),
		shardAt(right, 62),
		shardAt(event.RootShard, 63),
	}, got)
}

func TestNewShardBlocksWithoutPrev(t *testing.T) {
	tops := []event.Shard{shardAt(event.RootShard, 5)}
	got, err := NewShardBlocks(context.Background(), tops, nil, func(context.Context, event.Shard) ([]event.Shard, error) {
		t.Fatal("parents must not be walked without prev")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, tops, got)
}

func TestNewShardBlocksErrors(t *testing.T) {
	errParents := errors.New("unavailable")
	_, err := NewShardBlocks(context.Background(),
		[]event.Shard{shardAt(event.RootShard, 9)},
		[]event.Shard{shardAt(event.RootShard, 8)},
		func(context.Context, event.Shard) ([]event.Shard, error) { return nil, errParents },
	)
	assert.ErrorIs(t, err, errParents)

	_, err = NewShardBlocks(context.Background(),
		[]event.Shard{shardAt(event.RootShard, 1000)},
		[]event.Shard{shardAt(event.RootShard, 1)},
		linear,
	)
	assert.ErrorContains(t, err, "behind the previous masterchain block")
}
