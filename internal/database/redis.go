package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nornex-as/portal/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis, which backs the session registry and the
// password-change PIN store. Both are ephemeral by design and expire via TTL.
func NewRedisClient(cfg *config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}

	logger.Info("redis connection established", slog.String("addr", cfg.Addr))
	return client, nil
}
