package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService provides JSON caching for summary query results. Every
// operation degrades to a miss on a nil backing cache, so callers never
// branch on whether Redis is configured.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service. A nil redis disables caching.
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// PriceSummaryKey builds the cache key of a per-item price summary window.
// Format: summary:price:<realm>:<item>:<from-unix>:<to-unix>
func PriceSummaryKey(realmID, itemID int64, from, to time.Time) string {
	return fmt.Sprintf("summary:price:%d:%d:%d:%d", realmID, itemID, from.Unix(), to.Unix())
}

// ActivitySummaryKey builds the cache key of a per-item activity summary
// window
func ActivitySummaryKey(realmID, itemID int64, from, to time.Time) string {
	return fmt.Sprintf("summary:activity:%d:%d:%d:%d", realmID, itemID, from.Unix(), to.Unix())
}

// RealmActivityKey builds the cache key of a realm activity range
func RealmActivityKey(realmID int64, from, to time.Time, bucket time.Duration) string {
	return fmt.Sprintf("summary:realm:%d:%d:%d:%d", realmID, from.Unix(), to.Unix(), int64(bucket.Seconds()))
}

// Set stores a value with the configured TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	if c.redis == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.redis.Set(ctx, key, data, c.ttl)
}

// Get retrieves a value and deserializes it into dest. The second return
// reports a hit.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c.redis == nil {
		return false, nil
	}

	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return true, nil
}

// InvalidateRealm drops every cached summary of a realm. Called after a
// snapshot is accepted so readers never see pre-snapshot summaries.
func (c *CacheService) InvalidateRealm(ctx context.Context, realmID int64) error {
	if c.redis == nil {
		return nil
	}

	patterns := []string{
		fmt.Sprintf("summary:price:%d:*", realmID),
		fmt.Sprintf("summary:activity:%d:*", realmID),
		fmt.Sprintf("summary:realm:%d:*", realmID),
	}

	for _, pattern := range patterns {
		if err := c.redis.DeleteByPattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to invalidate realm cache: %w", err)
		}
	}

	return nil
}

// TTL returns the configured TTL
func (c *CacheService) TTL() time.Duration {
	return c.ttl
}
