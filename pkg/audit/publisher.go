// Package audit emits and stores a trail of completed operations.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/healthtwin/platform/pkg/common/logger"
	"github.com/healthtwin/platform/pkg/dlp"
)

const (
	EventPrescriptionProcessed   = "prescription.processed"
	EventRiskScored              = "risk.scored"
	EventRecommendationGenerated = "recommendation.generated"

	publishTimeout = 5 * time.Second
	queueSize      = 256
)

// Publisher records that an operation completed. Implementations never fail
// or delay the calling request.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}

// EventWriter is satisfied by kafka.Producer.
type EventWriter interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type queuedEvent struct {
	eventType string
	payload   map[string]interface{}
}

// BusPublisher hands events to a background writer through a bounded queue.
// Events arriving while the queue is full are dropped and logged.
type BusPublisher struct {
	writer   EventWriter
	source   string
	redactor *dlp.Detector

	mu     sync.RWMutex
	closed bool
	queue  chan queuedEvent
	done   chan struct{}
}

func NewBusPublisher(writer EventWriter, source string, redactor *dlp.Detector) *BusPublisher {
	p := &BusPublisher{
		writer:   writer,
		source:   source,
		redactor: redactor,
		queue:    make(chan queuedEvent, queueSize),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish masks PHI in data and enqueues it. The masked kinds are listed
// under "redacted".
func (p *BusPublisher) Publish(_ context.Context, eventType string, data map[string]interface{}) {
	payload := p.redactor.Sanitize(data)
	if found := p.redactor.Detect(data); found.Detected {
		payload["redacted"] = found.PHITypes
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		logger.Log.WithField("event_type", eventType).Warn("audit publisher closed, event dropped")
		return
	}
	select {
	case p.queue <- queuedEvent{eventType: eventType, payload: payload}:
	default:
		logger.Log.WithField("event_type", eventType).Warn("audit queue full, event dropped")
	}
}

// Close stops accepting events and waits for queued ones to be written.
func (p *BusPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}

func (p *BusPublisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := p.writer.PublishEvent(ctx, ev.eventType, p.source, ev.payload); err != nil {
			logger.Log.WithError(err).WithField("event_type", ev.eventType).Warn("audit event dropped")
		}
		cancel()
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, string, map[string]interface{}) {}
