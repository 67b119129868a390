package cache

import (
	"github.com/redis/go-redis/v9"

	"github.com/keepalive-app/keepalive/internal/config"
)

// New builds the Redis client backing the ping rate limiter. Returns nil
// when no address is configured; the limiter treats that as disabled.
func New(cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
}
