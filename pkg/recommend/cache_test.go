package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/healthtwin/platform/pkg/common/logger"
)

type countingGenerator struct {
	out   json.RawMessage
	err   error
	calls int
}

func (g *countingGenerator) Generate(context.Context, map[string]interface{}, map[string]interface{}) (json.RawMessage, error) {
	g.calls++
	return g.out, g.err
}

type memoryCache struct {
	items   map[string][]byte
	ttl     time.Duration
	readErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if c.readErr != nil {
		return nil, false, c.readErr
	}
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.items[key] = value
	c.ttl = ttl
	return nil
}

func TestCacheKeyIgnoresMapOrder(t *testing.T) {
	a, err := CacheKey(map[string]interface{}{"a": 1, "b": 2}, map[string]interface{}{"age": 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := CacheKey(map[string]interface{}{"b": 2, "a": 1}, map[string]interface{}{"age": 40})
	c, _ := CacheKey(map[string]interface{}{"a": 1, "b": 3}, map[string]interface{}{"age": 40})
	if a != b {
		t.Fatal("expected equal keys for equal inputs")
	}
	if a == c {
		t.Fatal("expected different keys for different inputs")
	}
}

func TestCachedGeneratorServesRepeats(t *testing.T) {
	next := &countingGenerator{out: json.RawMessage(`{"summary":"ok"}`)}
	cache := newMemoryCache()
	gen := NewCachedGenerator(next, cache, time.Minute)
	vitals := map[string]interface{}{"spo2": 97}
	params := map[string]interface{}{"age": 30}

	for i := 0; i < 3; i++ {
		out, err := gen.Generate(context.Background(), vitals, params)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if string(out) != `{"summary":"ok"}` {
			t.Fatalf("unexpected output %s", out)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}
	if cache.ttl != time.Minute {
		t.Fatalf("expected ttl passed to cache, got %s", cache.ttl)
	}
}

func TestCachedGeneratorFallsThrough(t *testing.T) {
	logger.Silence()
	next := &countingGenerator{out: json.RawMessage(`{}`)}
	cache := newMemoryCache()
	cache.readErr = errors.New("connection refused")
	gen := NewCachedGenerator(next, cache, time.Minute)

	if _, err := gen.Generate(context.Background(), map[string]interface{}{"a": 1}, map[string]interface{}{"b": 2}); err != nil {
		t.Fatalf("expected cache failure to be ignored, got %v", err)
	}
	if next.calls != 1 {
		t.Fatal("expected upstream call on cache failure")
	}
}

func TestCachedGeneratorDoesNotStoreErrors(t *testing.T) {
	next := &countingGenerator{err: errors.New("quota exceeded")}
	cache := newMemoryCache()
	gen := NewCachedGenerator(next, cache, time.Minute)

	if _, err := gen.Generate(context.Background(), map[string]interface{}{"a": 1}, map[string]interface{}{"b": 2}); err == nil {
		t.Fatal("expected error")
	}
	if len(cache.items) != 0 {
		t.Fatal("failed generations must not be cached")
	}
}
