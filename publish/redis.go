package publish

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStream publishes to Redis Streams, one stream per topic.
type RedisStream struct {
	client *redis.Client
	maxLen int64
}

// NewRedisStream wraps client. A positive maxLen trims each stream to
// roughly that many entries.
func NewRedisStream(client *redis.Client, maxLen int64) *RedisStream {
	return &RedisStream{client: client, maxLen: maxLen}
}

// Publish appends payload to the stream named topic with XADD.
func (p *RedisStream) Publish(ctx context.Context, topic, key string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: topic,
		Values: map[string]any{
			"key":     key,
			"payload": payload,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish: xadd %s: %w", topic, err)
	}
	return nil
}

// Close closes the client.
func (p *RedisStream) Close() error {
	return p.client.Close()
}
