package distance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"liveroute/internal/metrics"
	"liveroute/internal/model"
)

// Cache stores travel times by coordinate pair. Get reports ok=false on a miss.
type Cache interface {
	Get(ctx context.Context, from, to model.LatLng) (time.Duration, bool, error)
	Set(ctx context.Context, from, to model.LatLng, d time.Duration) error
}

func roundCoord(v float64) float64 {
	return math.Round(v*100000) / 100000
}

func cacheKey(from, to model.LatLng) string {
	return fmt.Sprintf("%.5f,%.5f->%.5f,%.5f", roundCoord(from.Lat), roundCoord(from.Lng), roundCoord(to.Lat), roundCoord(to.Lng))
}

type MemoryCache struct {
	mu sync.RWMutex
	m  map[string]time.Duration
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: map[string]time.Duration{}}
}

func (c *MemoryCache) Get(_ context.Context, from, to model.LatLng) (time.Duration, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.m[cacheKey(from, to)]
	return d, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, from, to model.LatLng, d time.Duration) error {
	c.mu.Lock()
	c.m[cacheKey(from, to)] = d
	c.mu.Unlock()
	return nil
}

// RedisCache keeps travel times in Redis as millisecond strings so several
// instances share one cache.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: "liveroute:tt:", ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, from, to model.LatLng) (time.Duration, bool, error) {
	v, err := c.rdb.Get(ctx, c.prefix+cacheKey(from, to)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis cache get: %w", err)
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis cache decode %q: %w", v, err)
	}
	return time.Duration(ms) * time.Millisecond, true, nil
}

func (c *RedisCache) Set(ctx context.Context, from, to model.LatLng, d time.Duration) error {
	if err := c.rdb.Set(ctx, c.prefix+cacheKey(from, to), d.Milliseconds(), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set: %w", err)
	}
	return nil
}

// Cached consults the cache before the provider. Cache failures are
// treated as misses.
type Cached struct {
	Provider Provider
	Cache    Cache
}

func (c Cached) TravelTime(ctx context.Context, from, to model.LatLng) (time.Duration, error) {
	if d, ok, err := c.Cache.Get(ctx, from, to); err == nil && ok {
		metrics.DistanceCacheLookups.WithLabelValues("hit").Inc()
		return d, nil
	}
	metrics.DistanceCacheLookups.WithLabelValues("miss").Inc()
	d, err := c.Provider.TravelTime(ctx, from, to)
	if err != nil {
		return 0, err
	}
	_ = c.Cache.Set(ctx, from, to, d)
	return d, nil
}
