// Package redis caches refreshed engagement snapshots so dashboard
// reads don't hit the provider or the history table.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/haidv/outpost/internal/core/domain"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string
	Password string
	TTL      time.Duration
}

// Cache wraps Redis operations for engagement snapshots.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache creates a new Redis snapshot cache.
func NewCache(cfg Config) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Health checks if Redis is reachable.
func (c *Cache) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func snapshotKey(externalID string) string {
	return fmt.Sprintf("engagement:%s", externalID)
}

// PutSnapshot stores the latest snapshot for a published item.
func (c *Cache) PutSnapshot(ctx context.Context, externalID string, snap domain.EngagementSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, snapshotKey(externalID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the cached snapshot, or (nil, nil) on a miss.
func (c *Cache) GetSnapshot(ctx context.Context, externalID string) (*domain.EngagementSnapshot, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(externalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached snapshot: %w", err)
	}

	var snap domain.EngagementSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
