package kafka

import (
	"context"
	"time"

	"github.com/healthtwin/platform/pkg/common/logger"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

// PublishEvent writes one event synchronously.
func (p *Producer) PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error {
	message, event, err := encodeEvent(eventType, source, data)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"event_id":   event.ID,
		"event_type": eventType,
		"topic":      p.writer.Topic,
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithFields(fields).Error("Failed to publish event")
		return err
	}
	logger.Log.WithFields(fields).Debug("Event published")
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
