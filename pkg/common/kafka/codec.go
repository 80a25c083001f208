package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/healthtwin/platform/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

const (
	headerEventType = "event-type"
	headerSource    = "source"
)

// encodeEvent wraps data in a new event keyed by its id.
func encodeEvent(eventType, source string, data map[string]interface{}) (kafka.Message, models.Event, error) {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, event, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(eventType)},
			{Key: headerSource, Value: []byte(source)},
		},
	}, event, nil
}

// decodeEvent reads an event, taking type and source from the headers when
// the body leaves them out.
func decodeEvent(message kafka.Message) (models.Event, error) {
	var event models.Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return event, err
	}
	for _, h := range message.Headers {
		switch {
		case h.Key == headerEventType && event.Type == "":
			event.Type = string(h.Value)
		case h.Key == headerSource && event.Source == "":
			event.Source = string(h.Value)
		}
	}
	if event.ID == "" {
		event.ID = string(message.Key)
	}
	return event, nil
}
