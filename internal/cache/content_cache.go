// Package cache holds the Redis-backed helpers: the public content cache and
// the per-client request limiter. Both degrade to no-ops without a client.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

const contentKey = "ouvidoria:content:settings"

// ContentCache stores the public content settings as one JSON document.
type ContentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewContentCache creates the cache. A nil client or a zero TTL disables it.
func NewContentCache(client *redis.Client, ttl time.Duration) *ContentCache {
	return &ContentCache{client: client, ttl: ttl}
}

func (c *ContentCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Get returns the cached settings. The boolean is false on a miss.
func (c *ContentCache) Get(ctx context.Context) ([]domain.ContentSetting, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, contentKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read content cache: %w", err)
	}
	var settings []domain.ContentSetting
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, false, fmt.Errorf("decode content cache: %w", err)
	}
	return settings, true, nil
}

// Set replaces the cached settings.
func (c *ContentCache) Set(ctx context.Context, settings []domain.ContentSetting) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, contentKey, raw, c.ttl).Err()
}

// Invalidate drops the cached settings.
func (c *ContentCache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Del(ctx, contentKey).Err()
}
