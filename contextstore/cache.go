package contextstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/archiveflow/coordinator/apperrors"
	"github.com/archiveflow/coordinator/model"
)

// Cache is the primary, fast session store. Entries carry a TTL; a cache
// miss is not an error, it is a signal to fall back to the filesystem.
type Cache interface {
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	Set(ctx context.Context, sessionID string, session model.Session, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
	// Ping reports whether the cache is reachable, used by the health
	// endpoint and by the lifecycle's startup liveness check.
	Ping(ctx context.Context) error
}

// RedisCache is a Cache backed by github.com/redis/go-redis/v9, keyed
// "session:<id>" per spec.md §4.1.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a RedisCache from a connection URL
// (e.g. "redis://localhost:6379/0").
func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.WrapConfig("parsing cache url", err)
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func cacheKey(sessionID string) string {
	return "session:" + sessionID
}

// Get implements Cache. A missing key is reported as (nil, nil), not an
// error.
func (c *RedisCache) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	raw, err := c.client.Get(ctx, cacheKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, apperrors.WrapStorage("cache get failed", err)
	}
	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, apperrors.WrapStorage("cache entry corrupt", err)
	}
	return &s, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, sessionID string, session model.Session, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return apperrors.WrapStorage("marshal session for cache", err)
	}
	if err := c.client.Set(ctx, cacheKey(sessionID), raw, ttl).Err(); err != nil {
		return apperrors.WrapStorage("cache set failed", err)
	}
	return nil
}

// Delete implements Cache. Deleting an absent key is not an error.
func (c *RedisCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, cacheKey(sessionID)).Err(); err != nil {
		return apperrors.WrapStorage("cache delete failed", err)
	}
	return nil
}

// Ping implements Cache.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return apperrors.WrapStorage("cache unreachable", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
