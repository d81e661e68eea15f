package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fusesearch/fuse-search/internal/pkg/errors"
	"github.com/fusesearch/fuse-search/internal/pkg/logger"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// keyPrefix namespaces fuse-search entries in a shared Redis.
const keyPrefix = "fuse:response:"

// RedisCache stores responses in Redis, shared across fuse-search nodes.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCache creates a Redis-backed response cache from a redis:// URL.
func NewRedisCache(url string, ttl time.Duration, log *logger.Logger) (*RedisCache, error) {
	if url == "" {
		url = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.CacheError("invalid redis url", err)
	}

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &RedisCache{
		client: redis.NewClient(opts),
		ttl:    ttl,
		log:    log,
	}, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (*retrieval.Response, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.CacheError("redis get failed", err)
	}

	var resp retrieval.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		// A corrupt entry is dropped, not returned.
		c.client.Del(ctx, keyPrefix+key)
		return nil, nil
	}
	return &resp, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, resp *retrieval.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return errors.CacheError("marshal response failed", err)
	}

	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return errors.CacheError("redis set failed", err)
	}
	return nil
}

// Close implements Cache.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping verifies connectivity, used by health checks.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.CacheError("redis ping failed", err)
	}
	return nil
}
