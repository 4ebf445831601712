// Package mirror contains transports for the external ledger mirror.
package mirror

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/iho/corebank/internal/domain"
)

// KafkaPublisher implements usecase.MirrorPublisher over a Kafka topic.
// Commands are keyed by account so the mirror consumes each account's
// movements in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a KafkaPublisher.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish writes one command to the mirror topic.
func (p *KafkaPublisher) Publish(ctx context.Context, cmd domain.MirrorCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(cmd.AccountID),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
