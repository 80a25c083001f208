package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestEncodeDecodeEvent(t *testing.T) {
	message, event, err := encodeEvent("risk.scored", "healthtwin-api", map[string]interface{}{"risk_score": 0.25})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(message.Key) != event.ID || event.ID == "" {
		t.Fatalf("expected message keyed by event id")
	}

	decoded, err := decodeEvent(message)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != event.ID || decoded.Type != "risk.scored" || decoded.Source != "healthtwin-api" {
		t.Fatalf("unexpected event %+v", decoded)
	}
	if decoded.Data["risk_score"] != 0.25 {
		t.Fatalf("unexpected data %v", decoded.Data)
	}
}

func TestDecodeEventFallsBackToHeaders(t *testing.T) {
	message := kafka.Message{
		Key:   []byte("evt-1"),
		Value: []byte(`{"data":{"a":1}}`),
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte("prescription.processed")},
			{Key: headerSource, Value: []byte("ocr")},
		},
	}
	event, err := decodeEvent(message)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.ID != "evt-1" || event.Type != "prescription.processed" || event.Source != "ocr" {
		t.Fatalf("unexpected event %+v", event)
	}

	if _, err := decodeEvent(kafka.Message{Value: []byte("not json")}); err == nil {
		t.Fatal("expected error for invalid body")
	}
}
