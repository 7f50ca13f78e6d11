package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BrandCache invalidates the cached brand snapshot other services keep in
// Redis. This core only emits invalidations; it never reads the snapshot.
type BrandCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewBrandCache creates the brand snapshot cache client.
func NewBrandCache(client *redis.Client, logger *zap.Logger) *BrandCache {
	return &BrandCache{client: client, logger: logger.Named("brand_cache")}
}

func brandKey(brandID uuid.UUID) string {
	return fmt.Sprintf("brand:snapshot:%s", brandID)
}

// Invalidate drops the brand snapshot key. Invalidation failures are
// logged, not returned: a stale cache must not fail a reconciliation.
func (c *BrandCache) Invalidate(ctx context.Context, brandID uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.client.Del(ctx, brandKey(brandID)).Err(); err != nil && err != redis.Nil {
		c.logger.Warn("Failed to invalidate brand snapshot",
			zap.String("brand_id", brandID.String()), zap.Error(err))
	}
}

// NewRedisClient connects and pings a Redis client.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
