package recommend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/healthtwin/platform/pkg/common/logger"
	"github.com/healthtwin/platform/pkg/observability/metrics"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "healthtwin:recommendations:"

// Cache stores generated documents by input key. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, cacheKeyPrefix+key, value, ttl).Err()
}

// CacheKey hashes the canonical encoding of both inputs. Map keys are encoded
// in sorted order so equal inputs share a key.
func CacheKey(vitals, bodyParams map[string]interface{}) (string, error) {
	canonical, err := json.Marshal(map[string]interface{}{
		"vitals":      vitals,
		"body_params": bodyParams,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CachedGenerator serves repeated inputs from the cache. Cache failures are
// logged and fall through to the wrapped generator.
type CachedGenerator struct {
	next  Generator
	cache Cache
	ttl   time.Duration
}

func NewCachedGenerator(next Generator, cache Cache, ttl time.Duration) *CachedGenerator {
	return &CachedGenerator{next: next, cache: cache, ttl: ttl}
}

func (g *CachedGenerator) Generate(ctx context.Context, vitals, bodyParams map[string]interface{}) (json.RawMessage, error) {
	key, err := CacheKey(vitals, bodyParams)
	if err != nil {
		return g.next.Generate(ctx, vitals, bodyParams)
	}

	cached, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		logger.Log.WithError(err).Warn("recommendation cache read failed")
	} else if ok && json.Valid(cached) {
		metrics.RecommendationCacheHit()
		return json.RawMessage(cached), nil
	}

	out, err := g.next.Generate(ctx, vitals, bodyParams)
	if err != nil {
		return nil, err
	}
	if json.Valid(out) {
		if err := g.cache.Set(ctx, key, out, g.ttl); err != nil {
			logger.Log.WithError(err).Warn("recommendation cache write failed")
		}
	}
	return out, nil
}
