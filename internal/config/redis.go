package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to REDIS_URL. It returns nil when Redis is not
// configured or does not answer a ping; callers fall back to in-memory storage.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if cfg.URL == "" {
		return nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		slog.Warn("invalid REDIS_URL, redis disabled", "error", err)
		return nil
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, falling back to memory storage", "error", err)
		_ = client.Close()
		return nil
	}

	slog.Info("redis connected", "addr", opts.Addr)
	return client
}
