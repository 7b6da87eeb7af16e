// Package publish forwards credited deposits to a message broker.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrUnsupported is returned by Open for an unknown broker URL.
var ErrUnsupported = errors.New("publish: unsupported broker")

// Publisher sends one message to a topic. key orders messages that share it.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Close() error
}

// Open selects a publisher by URL: "" disables publishing, redis:// and
// rediss:// use Redis Streams, kafka://host1:9092,host2:9092 uses Kafka.
func Open(ctx context.Context, url string) (Publisher, error) {
	switch {
	case url == "":
		return Nop{}, nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("publish: parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("publish: ping redis: %w", err)
		}
		return NewRedisStream(client, 0), nil
	case strings.HasPrefix(url, "kafka://"):
		brokers := strings.Split(strings.TrimPrefix(url, "kafka://"), ",")
		return NewKafka(brokers), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, url)
	}
}

// Nop discards every message.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, string, []byte) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }
