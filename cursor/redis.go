package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding every subscription position.
const DefaultRedisKey = "tonwatch:progress"

// Redis stores positions as JSON fields of a single Redis hash.
type Redis struct {
	client *redis.Client
	hash   string
}

// NewRedis parses a redis:// URL and connects.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cursor/redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cursor/redis: ping: %w", err)
	}
	return NewRedisWithClient(client, DefaultRedisKey), nil
}

// NewRedisWithClient wraps an existing client, storing positions under hash.
func NewRedisWithClient(client *redis.Client, hash string) *Redis {
	return &Redis{client: client, hash: hash}
}

// Load returns the saved position for key.
func (r *Redis) Load(ctx context.Context, key string) (Position, bool, error) {
	raw, err := r.client.HGet(ctx, r.hash, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("cursor/redis: hget %s: %w", key, err)
	}
	var pos Position
	if err := json.Unmarshal(raw, &pos); err != nil {
		return Position{}, false, fmt.Errorf("cursor/redis: decode %s: %w", key, err)
	}
	return pos, true, nil
}

// Save writes the position for key.
func (r *Redis) Save(ctx context.Context, key string, pos Position) error {
	b, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("cursor/redis: marshal: %w", err)
	}
	if err := r.client.HSet(ctx, r.hash, key, b).Err(); err != nil {
		return fmt.Errorf("cursor/redis: hset %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
