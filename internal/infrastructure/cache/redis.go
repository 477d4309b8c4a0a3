package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// assetCacheKeyPrefix is the prefix for asset lookup keys in Redis.
const assetCacheKeyPrefix = "asset:lesson:"

// RedisAssetCache implements AssetCache using Redis as the backing store.
type RedisAssetCache struct {
	client *redis.Client
}

// Compile-time verification that RedisAssetCache implements AssetCache.
var _ AssetCache = (*RedisAssetCache)(nil)

// NewRedisAssetCache creates a new Redis-backed asset cache.
func NewRedisAssetCache(client *redis.Client) *RedisAssetCache {
	return &RedisAssetCache{
		client: client,
	}
}

// GetLesson retrieves the lesson owning a canonical URL from Redis.
// Returns uuid.Nil, nil on cache miss.
func (c *RedisAssetCache) GetLesson(ctx context.Context, canonicalURL string) (uuid.UUID, error) {
	data, err := c.client.Get(ctx, buildKey(canonicalURL)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, nil // Cache miss
		}
		return uuid.Nil, fmt.Errorf("redis get: %w", err)
	}

	id, err := uuid.Parse(data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse cached lesson ID: %w", err)
	}

	return id, nil
}

// SetLesson stores the URL → lesson mapping with the specified TTL.
func (c *RedisAssetCache) SetLesson(ctx context.Context, canonicalURL string, lessonID uuid.UUID, ttl time.Duration) error {
	if err := c.client.Set(ctx, buildKey(canonicalURL), lessonID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a cached mapping.
func (c *RedisAssetCache) Delete(ctx context.Context, canonicalURL string) error {
	if err := c.client.Del(ctx, buildKey(canonicalURL)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// buildKey hashes the canonical URL so arbitrarily long URLs map to
// fixed-size Redis keys.
func buildKey(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))
	return assetCacheKeyPrefix + hex.EncodeToString(sum[:])
}
