package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter: fixed window sencillo (INCR + EXPIRE)
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	hits := incr.Val()
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}
	windowEnd := winStart.Add(l.Window)
	res := Result{
		Allowed:     hits <= l.Max,
		Remaining:   remaining,
		WindowTTL:   time.Until(windowEnd),
		CurrentHits: hits,
	}
	if !res.Allowed {
		res.RetryAfter = time.Until(windowEnd)
	}
	return res, nil
}

// MemoryLimiter: mismo algoritmo fixed-window sobre go-cache, para deploys
// sin Redis (dev o single-node).
type MemoryLimiter struct {
	cache  *gocache.Cache
	max    int64
	window time.Duration
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		cache:  gocache.New(window, 2*window),
		max:    int64(max),
		window: window,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.window)
	k := fmt.Sprintf("%s:%d", key, winStart.Unix())

	// Add es no-op si ya existe; Increment sobre la entrada de la ventana.
	_ = l.cache.Add(k, int64(0), l.window)
	hits, err := l.cache.IncrementInt64(k, 1)
	if err != nil {
		// entrada expirada entre Add e Increment: reintento simple
		l.cache.Set(k, int64(1), l.window)
		hits = 1
	}

	remaining := l.max - hits
	if remaining < 0 {
		remaining = 0
	}
	windowEnd := winStart.Add(l.window)
	res := Result{
		Allowed:     hits <= l.max,
		Remaining:   remaining,
		WindowTTL:   time.Until(windowEnd),
		CurrentHits: hits,
	}
	if !res.Allowed {
		res.RetryAfter = time.Until(windowEnd)
	}
	return res, nil
}
