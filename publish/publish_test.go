package publish

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	p, err := Open(context.Background(), "")
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), "t", "k", []byte("x")))

	p, err = Open(context.Background(), "kafka://localhost:9092")
	require.NoError(t, err)
	assert.IsType(t, &Kafka{}, p)
	require.NoError(t, p.Close())

	_, err = Open(context.Background(), "amqp://localhost")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRedisStream(t *testing.T) {
	url := os.Getenv("TONWATCH_TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	stream := "tonwatch:test:deposits"
	client.Del(ctx, stream)
	defer client.Del(context.Background(), stream)

	p := NewRedisStream(client, 100)
	defer p.Close()
	require.NoError(t, p.Publish(ctx, stream, "wallet", []byte(`{"amount":"1"}`)))

	msgs, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "wallet", msgs[0].Values["key"])
	assert.Equal(t, `{"amount":"1"}`, msgs[0].Values["payload"])
}
