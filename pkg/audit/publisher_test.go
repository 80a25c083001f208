package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/healthtwin/platform/pkg/common/logger"
	"github.com/healthtwin/platform/pkg/dlp"
)

type recordingWriter struct {
	mu        sync.Mutex
	eventType string
	source    string
	data      map[string]interface{}
	calls     int
	err       error
}

func (w *recordingWriter) PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.eventType = eventType
	w.source = source
	w.data = data
	w.calls++
	return w.err
}

// blockingWriter holds every write until release is closed.
type blockingWriter struct {
	release chan struct{}
	writes  sync.WaitGroup
}

func (w *blockingWriter) PublishEvent(context.Context, string, string, map[string]interface{}) error {
	defer w.writes.Done()
	<-w.release
	return nil
}

func TestBusPublisherRedactsPayload(t *testing.T) {
	detector, err := dlp.NewDetector(dlp.DefaultRules())
	if err != nil {
		t.Fatalf("detector: %v", err)
	}
	writer := &recordingWriter{}
	publisher := NewBusPublisher(writer, "healthtwin-api", detector)

	data := map[string]interface{}{"raw_text": "Call 555-123-4567 re: refill"}
	publisher.Publish(context.Background(), EventPrescriptionProcessed, data)
	publisher.Close()

	if writer.eventType != EventPrescriptionProcessed || writer.source != "healthtwin-api" {
		t.Fatalf("unexpected envelope %s/%s", writer.eventType, writer.source)
	}
	if strings.Contains(writer.data["raw_text"].(string), "555-123-4567") {
		t.Fatalf("phone number leaked: %v", writer.data["raw_text"])
	}
	if types, _ := writer.data["redacted"].([]string); len(types) != 1 || types[0] != "phone" {
		t.Fatalf("expected redacted phone type, got %v", writer.data["redacted"])
	}
	if data["raw_text"] != "Call 555-123-4567 re: refill" {
		t.Fatal("caller data must not be mutated")
	}
}

func TestBusPublisherSwallowsErrors(t *testing.T) {
	logger.Silence()
	writer := &recordingWriter{err: errors.New("broker down")}
	publisher := NewBusPublisher(writer, "healthtwin-api", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	publisher.Publish(ctx, EventRiskScored, map[string]interface{}{"risk_score": 0.4})
	publisher.Close()

	if writer.eventType != EventRiskScored {
		t.Fatal("expected publish attempt even after request cancellation")
	}
}

func TestBusPublisherDoesNotWaitForWriter(t *testing.T) {
	logger.Silence()
	writer := &blockingWriter{release: make(chan struct{})}
	writer.writes.Add(1)
	publisher := NewBusPublisher(writer, "healthtwin-api", nil)

	start := time.Now()
	publisher.Publish(context.Background(), EventRiskScored, map[string]interface{}{"risk_score": 0.4})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("publish waited %s for a stalled writer", elapsed)
	}

	close(writer.release)
	writer.writes.Wait()
	publisher.Close()
}

func TestBusPublisherDropsWhenFullOrClosed(t *testing.T) {
	logger.Silence()
	writer := &blockingWriter{release: make(chan struct{})}
	writer.writes.Add(1)
	publisher := NewBusPublisher(writer, "healthtwin-api", nil)

	start := time.Now()
	for i := 0; i < queueSize+10; i++ {
		publisher.Publish(context.Background(), EventRiskScored, map[string]interface{}{"n": i})
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("publishing into a full queue blocked for %s", elapsed)
	}

	// One event is held by the writer; the rest of the queue drains on close.
	writer.writes.Add(queueSize)
	close(writer.release)
	publisher.Close()

	recorder := &recordingWriter{}
	closed := NewBusPublisher(recorder, "healthtwin-api", nil)
	closed.Close()
	closed.Publish(context.Background(), EventRiskScored, map[string]interface{}{})
	if recorder.calls != 0 {
		t.Fatal("events published after Close must be dropped")
	}
}
