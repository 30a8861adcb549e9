package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/toolvane/toolvane/internal/model"
)

// Cache key prefixes and TTLs.
const (
	toolKeyPrefix     = "tool:"
	negCacheKeySuffix = ":neg"

	// DefaultToolTTL is the TTL for cached tool documents. Tool records
	// change rarely outside the hourly optimization job, so an hour
	// bounds staleness to one job cycle.
	DefaultToolTTL = time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 5 * time.Minute
)

// ErrCacheMiss signals the key was not cached.
var ErrCacheMiss = errors.New("cache miss")

// GetTool retrieves a cached tool document. Returns ErrCacheMiss when
// the id is not cached.
func (c *Cache) GetTool(ctx context.Context, id string) (*model.Tool, error) {
	raw, err := c.client.Get(ctx, toolKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var tool model.Tool
	if err := json.Unmarshal(raw, &tool); err != nil {
		return nil, fmt.Errorf("decode cached tool: %w", err)
	}
	return &tool, nil
}

// SetTool caches a tool document and clears any negative entry for it.
func (c *Cache) SetTool(ctx context.Context, tool *model.Tool) error {
	raw, err := json.Marshal(tool)
	if err != nil {
		return fmt.Errorf("encode tool: %w", err)
	}

	key := toolKeyPrefix + tool.ID
	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, raw, DefaultToolTTL)
	pipe.Del(ctx, key+negCacheKeySuffix)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache tool: %w", err)
	}
	return nil
}

// InvalidateTool drops a tool and its negative entry from cache. Called
// after every write to the backing record.
func (c *Cache) InvalidateTool(ctx context.Context, id string) error {
	key := toolKeyPrefix + id
	if err := c.client.Del(ctx, key, key+negCacheKeySuffix).Err(); err != nil {
		return fmt.Errorf("failed to invalidate tool: %w", err)
	}
	return nil
}

// IsNegativelyCached reports whether the id was recently looked up and
// found missing.
func (c *Cache) IsNegativelyCached(ctx context.Context, id string) (bool, error) {
	exists, err := c.client.Exists(ctx, toolKeyPrefix+id+negCacheKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}
	return exists > 0, nil
}

// SetNegativeCache marks a tool id as not found so repeated misses skip
// the store.
func (c *Cache) SetNegativeCache(ctx context.Context, id string) error {
	key := toolKeyPrefix + id + negCacheKeySuffix
	if err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}
	return nil
}
