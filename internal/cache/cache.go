// Package cache provides the retrieval response cache. Identical queries
// within the TTL window are served from cache without touching any lane.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fusesearch/fuse-search/internal/breaker"
	"github.com/fusesearch/fuse-search/internal/config"
	"github.com/fusesearch/fuse-search/internal/pkg/logger"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// Cache stores fused responses keyed by query fingerprint.
type Cache interface {
	// Get returns the cached response for a key. A miss is (nil, nil); an
	// error means the backend failed.
	Get(ctx context.Context, key string) (*retrieval.Response, error)

	// Set stores a response under a key.
	Set(ctx context.Context, key string, resp *retrieval.Response) error

	// Close releases resources.
	Close() error
}

// NewCache creates a cache from configuration.
func NewCache(cfg config.CacheConfig, log *logger.Logger) (Cache, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second

	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryCache(cfg.Size, ttl), nil
	case "redis":
		return NewRedisCache(cfg.RedisURL, ttl, log)
	case "none":
		return NewNopCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

// NopCache stores nothing. Used when response caching is disabled.
type NopCache struct{}

// NewNopCache creates a cache that never hits.
func NewNopCache() *NopCache { return &NopCache{} }

// Get implements Cache.
func (*NopCache) Get(context.Context, string) (*retrieval.Response, error) { return nil, nil }

// Set implements Cache.
func (*NopCache) Set(context.Context, string, *retrieval.Response) error { return nil }

// Close implements Cache.
func (*NopCache) Close() error { return nil }

// Guarded wraps a cache behind a circuit breaker so a failing cache backend
// degrades to cache misses instead of stalling retrievals.
type Guarded struct {
	inner Cache
	br    *breaker.Breaker
	log   *logger.Logger
}

// NewGuarded wraps a cache with a breaker.
func NewGuarded(inner Cache, br *breaker.Breaker, log *logger.Logger) *Guarded {
	return &Guarded{inner: inner, br: br, log: log}
}

// Get implements Cache. An open breaker or a backend failure reads as a
// miss; the failure is recorded on the breaker.
func (g *Guarded) Get(ctx context.Context, key string) (*retrieval.Response, error) {
	if !g.br.CanExecute() {
		return nil, nil
	}
	resp, err := g.inner.Get(ctx, key)
	if err != nil {
		g.br.RecordFailure()
		g.log.Warn("cache read failed", "error", err)
		return nil, nil
	}
	g.br.RecordSuccess()
	return resp, nil
}

// Set implements Cache. An open breaker drops the write.
func (g *Guarded) Set(ctx context.Context, key string, resp *retrieval.Response) error {
	if !g.br.CanExecute() {
		return nil
	}
	if err := g.inner.Set(ctx, key, resp); err != nil {
		g.br.RecordFailure()
		g.log.Warn("cache write failed", "error", err)
		return err
	}
	g.br.RecordSuccess()
	return nil
}

// Close implements Cache.
func (g *Guarded) Close() error { return g.inner.Close() }
