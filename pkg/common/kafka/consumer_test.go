package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/healthtwin/platform/pkg/common/logger"
	"github.com/healthtwin/platform/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

// scriptedReader serves fetch results in order and then blocks until the
// context is cancelled.
type scriptedReader struct {
	fetches   []fetchResult
	fetchCall int
	committed []int64
}

type fetchResult struct {
	message kafka.Message
	err     error
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.fetchCall++
	if len(r.fetches) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	next := r.fetches[0]
	r.fetches = r.fetches[1:]
	return next.message, next.err
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error { return nil }

func fastBackoff(t *testing.T) {
	t.Helper()
	oldMin, oldMax := minBackoff, maxBackoff
	minBackoff, maxBackoff = time.Millisecond, 4*time.Millisecond
	t.Cleanup(func() { minBackoff, maxBackoff = oldMin, oldMax })
}

func encoded(t *testing.T, offset int64) kafka.Message {
	t.Helper()
	message, _, err := encodeEvent("risk.scored", "healthtwin-api", map[string]interface{}{"offset": offset})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	message.Offset = offset
	return message
}

func TestConsumeRetriesFailedMessageBeforeCommitting(t *testing.T) {
	logger.Silence()
	fastBackoff(t)
	reader := &scriptedReader{fetches: []fetchResult{
		{message: encoded(t, 1)},
		{message: encoded(t, 2)},
	}}
	consumer := &Consumer{reader: reader}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var seen []float64
	failures := 2
	handler := func(_ context.Context, event models.Event) error {
		seen = append(seen, event.Data["offset"].(float64))
		if event.Data["offset"] == float64(1) && failures > 0 {
			failures--
			return errors.New("database unavailable")
		}
		if len(seen) == 4 {
			cancel()
		}
		return nil
	}

	if err := consumer.Consume(ctx, handler); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	want := []float64{1, 1, 1, 2}
	if len(seen) != len(want) {
		t.Fatalf("expected handler calls %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected handler calls %v, got %v", want, seen)
		}
	}
	if len(reader.committed) < 1 || reader.committed[0] != 1 {
		t.Fatalf("offset 1 must be committed first, got %v", reader.committed)
	}
}

func TestConsumeDoesNotCommitPastFailureOnShutdown(t *testing.T) {
	logger.Silence()
	fastBackoff(t)
	reader := &scriptedReader{fetches: []fetchResult{
		{message: encoded(t, 7)},
		{message: encoded(t, 8)},
	}}
	consumer := &Consumer{reader: reader}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	handler := func(context.Context, models.Event) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return errors.New("still failing")
	}

	if err := consumer.Consume(ctx, handler); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(reader.committed) != 0 {
		t.Fatalf("nothing may be committed, got %v", reader.committed)
	}
	if reader.fetchCall != 1 {
		t.Fatalf("the next message must not be fetched, got %d fetches", reader.fetchCall)
	}
}

func TestConsumeBacksOffOnFetchErrors(t *testing.T) {
	logger.Silence()
	fastBackoff(t)
	reader := &scriptedReader{fetches: []fetchResult{
		{err: errors.New("broker unreachable")},
		{err: errors.New("broker unreachable")},
		{message: encoded(t, 3)},
	}}
	consumer := &Consumer{reader: reader}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start := time.Now()
	handler := func(context.Context, models.Event) error {
		cancel()
		return nil
	}

	if err := consumer.Consume(ctx, handler); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	// 1ms then 2ms of backoff before the third fetch.
	if elapsed := time.Since(start); elapsed < 3*time.Millisecond {
		t.Fatalf("expected backoff between failed fetches, took %s", elapsed)
	}
	if len(reader.committed) != 1 || reader.committed[0] != 3 {
		t.Fatalf("expected offset 3 committed, got %v", reader.committed)
	}
}

func TestConsumeSkipsUndecodableMessages(t *testing.T) {
	logger.Silence()
	fastBackoff(t)
	reader := &scriptedReader{fetches: []fetchResult{
		{message: kafka.Message{Offset: 4, Value: []byte("not json")}},
		{message: encoded(t, 5)},
	}}
	consumer := &Consumer{reader: reader}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := func(context.Context, models.Event) error {
		cancel()
		return nil
	}

	if err := consumer.Consume(ctx, handler); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(reader.committed) != 2 || reader.committed[0] != 4 || reader.committed[1] != 5 {
		t.Fatalf("expected offsets 4 and 5 committed, got %v", reader.committed)
	}
}
