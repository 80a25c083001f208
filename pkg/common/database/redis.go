package database

import (
	"context"
	"fmt"
	"time"

	"github.com/healthtwin/platform/pkg/common/config"
	"github.com/healthtwin/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// NewRedis connects to Redis. A failed ping is returned so callers can run
// without the cache.
func NewRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	logger.Log.WithField("addr", client.Options().Addr).Info("Connected to Redis")
	return client, nil
}
