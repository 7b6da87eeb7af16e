package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafka publishes through a kafka-go writer. Messages with the same key go
// to the same partition, keeping one wallet's deposits in order.
type Kafka struct {
	writer *kafka.Writer
}

// NewKafka creates a publisher for brokers. The topic is set per message.
func NewKafka(brokers []string) *Kafka {
	return &Kafka{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
	}}
}

// Publish writes one message and waits for the acknowledgement.
func (p *Kafka) Publish(ctx context.Context, topic, key string, payload []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publish: kafka %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Kafka) Close() error {
	return p.writer.Close()
}
