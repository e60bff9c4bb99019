package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheService(NewRedisCacheFromClient(client), time.Minute), mr
}

type cachedValue struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

func TestCacheServiceSetGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	stored := cachedValue{Name: "copper ore", Count: 42}
	require.NoError(t, cache.Set(ctx, "summary:price:1:2:0:3600", stored))

	var loaded cachedValue
	hit, err := cache.Get(ctx, "summary:price:1:2:0:3600", &loaded)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, stored, loaded)
}

func TestCacheServiceMiss(t *testing.T) {
	cache, _ := setupTestCache(t)

	var loaded cachedValue
	hit, err := cache.Get(context.Background(), "summary:price:9:9:0:0", &loaded)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceNilRedis(t *testing.T) {
	cache := NewCacheService(nil, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", cachedValue{}))

	var loaded cachedValue
	hit, err := cache.Get(ctx, "k", &loaded)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.InvalidateRealm(ctx, 1))
}

func TestCacheServiceInvalidateRealm(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, PriceSummaryKey(1, 5, time.Unix(0, 0), time.Unix(3600, 0)), cachedValue{Count: 1}))
	require.NoError(t, cache.Set(ctx, ActivitySummaryKey(1, 5, time.Unix(0, 0), time.Unix(3600, 0)), cachedValue{Count: 2}))
	require.NoError(t, cache.Set(ctx, PriceSummaryKey(2, 5, time.Unix(0, 0), time.Unix(3600, 0)), cachedValue{Count: 3}))

	require.NoError(t, cache.InvalidateRealm(ctx, 1))

	var loaded cachedValue
	hit, err := cache.Get(ctx, PriceSummaryKey(1, 5, time.Unix(0, 0), time.Unix(3600, 0)), &loaded)
	require.NoError(t, err)
	assert.False(t, hit, "realm 1 price summary should be gone")

	hit, err = cache.Get(ctx, ActivitySummaryKey(1, 5, time.Unix(0, 0), time.Unix(3600, 0)), &loaded)
	require.NoError(t, err)
	assert.False(t, hit, "realm 1 activity summary should be gone")

	hit, err = cache.Get(ctx, PriceSummaryKey(2, 5, time.Unix(0, 0), time.Unix(3600, 0)), &loaded)
	require.NoError(t, err)
	assert.True(t, hit, "realm 2 summary should survive")
}

func TestCacheKeys(t *testing.T) {
	from := time.Unix(1000, 0)
	to := time.Unix(2000, 0)

	assert.Equal(t, "summary:price:3:77:1000:2000", PriceSummaryKey(3, 77, from, to))
	assert.Equal(t, "summary:activity:3:77:1000:2000", ActivitySummaryKey(3, 77, from, to))
	assert.Equal(t, "summary:realm:3:1000:2000:3600", RealmActivityKey(3, from, to, time.Hour))
}
