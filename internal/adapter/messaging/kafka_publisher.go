package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rl1809/stock-tracker/internal/core/domain"
)

const (
	batchTimeout = 10 * time.Millisecond
	batchSize    = 100
)

// KafkaPublisher writes stock events to a topic keyed by item, so every
// event of one item lands on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(broker, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: batchTimeout,
			BatchSize:    batchSize,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.StockEvent) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write stock event %s: %w", event.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newMessage(event domain.StockEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode stock event %s: %w", event.ID, err)
	}

	return kafka.Message{
		Key:   []byte(event.Item),
		Value: payload,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "action", Value: []byte(event.Action)},
		},
	}, nil
}
