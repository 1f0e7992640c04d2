package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDisabledCacheIsANoop(t *testing.T) {
	ctx := context.Background()
	for _, c := range []*ContentCache{nil, NewContentCache(nil, time.Minute), NewContentCache(unreachableClient(t), 0)} {
		settings, hit, err := c.Get(ctx)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Nil(t, settings)
		assert.NoError(t, c.Set(ctx, []domain.ContentSetting{{Key: "k", Value: "v"}}))
		assert.NoError(t, c.Invalidate(ctx))
	}
}

func TestCacheSurfacesRedisErrors(t *testing.T) {
	c := NewContentCache(unreachableClient(t), time.Minute)
	_, hit, err := c.Get(context.Background())
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestRateLimiterWithoutRedisAllowsEverything(t *testing.T) {
	ctx := context.Background()
	var nilLimiter *RateLimiter
	for _, l := range []*RateLimiter{nilLimiter, NewRateLimiter(nil, "lookup", 1, time.Minute), NewRateLimiter(unreachableClient(t), "lookup", 0, time.Minute)} {
		for i := 0; i < 3; i++ {
			allowed, err := l.Allow(ctx, "10.0.0.1")
			require.NoError(t, err)
			assert.True(t, allowed)
		}
	}
}

func TestRateLimiterReportsRedisFailure(t *testing.T) {
	l := NewRateLimiter(unreachableClient(t), "lookup", 5, time.Minute)
	allowed, err := l.Allow(context.Background(), "10.0.0.1")
	assert.Error(t, err)
	assert.False(t, allowed)
}
