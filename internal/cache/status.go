package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "notifyq:job_status:"

// StatusCache is a best-effort read-through cache for job statuses. Cache
// failures are logged, never surfaced: the store is always authoritative.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Config holds status cache configuration
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// New creates a StatusCache and verifies connectivity.
func New(cfg *Config, logger *slog.Logger) (*StatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("Connected to Redis",
		slog.String("addr", cfg.Addr),
		slog.Duration("ttl", cfg.TTL),
	)

	return &StatusCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

// SetStatus caches a job's status with the configured TTL.
func (c *StatusCache) SetStatus(ctx context.Context, jobID, status string) {
	if err := c.client.Set(ctx, keyPrefix+jobID, status, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache job status",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// GetStatus returns the cached status, or empty on a miss.
func (c *StatusCache) GetStatus(ctx context.Context, jobID string) string {
	status, err := c.client.Get(ctx, keyPrefix+jobID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read job status from cache",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}
	return status
}

// Invalidate drops a job's cached status, for example after cancellation.
func (c *StatusCache) Invalidate(ctx context.Context, jobID string) {
	if err := c.client.Del(ctx, keyPrefix+jobID).Err(); err != nil {
		c.logger.Warn("Failed to invalidate cached job status",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes the underlying redis client.
func (c *StatusCache) Close() error {
	return c.client.Close()
}
