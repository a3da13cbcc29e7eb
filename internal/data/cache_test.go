package data

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"cinecrowd/internal/cache"
	"cinecrowd/internal/conf"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

func newRedisCache(t *testing.T, ttl time.Duration) (cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	c := NewResponseCache(&Data{rdb: rdb}, &conf.Cache{Ttl: conf.NewDuration(ttl), Prefix: "test:"}, log.NewStdLogger(io.Discard))
	if _, ok := c.(*redisCache); !ok {
		t.Fatalf("NewResponseCache returned %T, want *redisCache", c)
	}
	return c, mr
}

func TestRedisCacheGetSet(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("hit on empty cache")
	}
	c.Set(ctx, "k", []byte(`{"movie":1}`))
	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != `{"movie":1}` {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if ttl := mr.TTL("test:k"); ttl != time.Minute {
		t.Errorf("stored ttl = %s, want 1m", ttl)
	}

	mr.FastForward(61 * time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("entry survived its ttl")
	}
}

func TestRedisCacheZeroTTLDisablesSet(t *testing.T) {
	c, mr := newRedisCache(t, 0)
	c.Set(context.Background(), "k", []byte("v"))
	if mr.Exists("test:k") {
		t.Error("Set stored a value with ttl 0")
	}
}

func TestRedisCachePurgeKeepsForeignKeys(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	// More keys than one SCAN page.
	for i := 0; i < 250; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"))
	}
	if err := mr.Set("other:k", "keep"); err != nil {
		t.Fatal(err)
	}

	c.Purge(ctx)

	for _, k := range mr.Keys() {
		if k != "other:k" {
			t.Errorf("key %q survived purge", k)
		}
	}
	if v, err := mr.Get("other:k"); err != nil || v != "keep" {
		t.Errorf("foreign key = %q, %v", v, err)
	}
	if _, ok := c.Get(ctx, "k0"); ok {
		t.Error("hit after purge")
	}
}

func TestRedisCacheDegradesWhenUnreachable(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()
	mr.Close()

	c.Set(ctx, "k", []byte("v"))
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("hit from a closed server")
	}
	c.Purge(ctx)
}

func TestNewResponseCacheFallsBackToMemory(t *testing.T) {
	c := NewResponseCache(&Data{}, nil, log.NewStdLogger(io.Discard))
	if _, ok := c.(*cache.Memory); !ok {
		t.Fatalf("NewResponseCache without redis = %T, want *cache.Memory", c)
	}
}
