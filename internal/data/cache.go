package data

import (
	"context"
	"time"

	"cinecrowd/internal/cache"
	"cinecrowd/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL    = 60 * time.Second
	defaultCachePrefix = "cinecrowd:resp:"
)

// redisCache shares cached responses between instances.
type redisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *log.Helper
}

// NewResponseCache returns a Redis-backed cache when Redis is connected and
// an in-memory one otherwise.
func NewResponseCache(d *Data, c *conf.Cache, logger log.Logger) cache.Cache {
	ttl, prefix := defaultCacheTTL, defaultCachePrefix
	if c != nil {
		if c.Ttl != nil {
			ttl = c.Ttl.AsDuration()
		}
		if c.Prefix != "" {
			prefix = c.Prefix
		}
	}
	l := log.NewHelper(logger)
	if d.rdb == nil {
		l.Infof("using in-memory response cache (ttl %s)", ttl)
		return cache.NewMemory(ttl, time.Now)
	}
	l.Infof("using redis response cache (ttl %s)", ttl)
	return &redisCache{rdb: d.rdb, ttl: ttl, prefix: prefix, log: l}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	v, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnf("cache get %s: %v", key, err)
		}
		return nil, false
	}
	return v, true
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte) {
	if c.ttl <= 0 {
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		c.log.Warnf("cache set %s: %v", key, err)
	}
}

// Purge deletes every key under the prefix.
func (c *redisCache) Purge(ctx context.Context) {
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	keys := make([]string, 0, 16)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warnf("cache purge scan: %v", err)
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warnf("cache purge: %v", err)
	}
}
