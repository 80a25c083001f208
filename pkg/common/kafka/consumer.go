package kafka

import (
	"context"
	"time"

	"github.com/healthtwin/platform/pkg/common/logger"
	"github.com/healthtwin/platform/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

var (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// messageReader is the part of *kafka.Reader the consumer drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader messageReader
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(brokers []string, topic string, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader}
}

// Consume blocks until ctx is cancelled. A message is committed only after
// its handler succeeds; a failing handler is retried on the same message with
// exponential backoff. Undecodable messages are committed and skipped.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	fetchDelay := minBackoff
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.WithError(err).WithField("retry_in", fetchDelay.String()).Error("Failed to fetch message")
			if err := sleep(ctx, fetchDelay); err != nil {
				return err
			}
			fetchDelay = nextBackoff(fetchDelay)
			continue
		}
		fetchDelay = minBackoff

		event, err := decodeEvent(message)
		if err != nil {
			logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal event, skipping")
			c.commit(ctx, message)
			continue
		}

		if err := c.handle(ctx, handler, event); err != nil {
			return err
		}
		c.commit(ctx, message)
	}
}

// handle runs handler until it succeeds. It only returns an error once ctx
// is done.
func (c *Consumer) handle(ctx context.Context, handler EventHandler, event models.Event) error {
	delay := minBackoff
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id": event.ID,
			"attempt":  attempt,
			"retry_in": delay.String(),
		}).Error("Failed to process event")
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay = nextBackoff(delay)
	}
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to commit message")
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
