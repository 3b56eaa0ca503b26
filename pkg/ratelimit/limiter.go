// Package ratelimit provides a sliding-window limiter backed by Redis
// sorted sets, with an in-memory token bucket fallback when Redis is
// unavailable. Used to throttle verification and challenge submissions
// per source address.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Limiter enforces a per-key request budget over a sliding window.
type Limiter struct {
	rdb      *redis.Client
	capacity int
	window   time.Duration
	burst    int
	fallback *localLimiter
}

// New builds a limiter. A nil Redis client makes it purely local.
func New(rdb *redis.Client, capacity int, window time.Duration, burst int) *Limiter {
	return &Limiter{
		rdb:      rdb,
		capacity: capacity,
		window:   window,
		burst:    burst,
		fallback: newLocalLimiter(capacity, window),
	}
}

// Lua keeps the remove/count/add sequence atomic across instances.
const allowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local capacity = tonumber(ARGV[3])
local burst = tonumber(ARGV[4])
local window_ms = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)
local max_capacity = capacity + burst

if count < max_capacity then
	redis.call('ZADD', key, now, now .. ':' .. redis.call('INCR', key .. ':seq'))
	redis.call('PEXPIRE', key, window_ms + 1000)
	return {1, max_capacity - count - 1}
else
	return {0, 0}
end
`

// Allow reports whether the request identified by key may proceed and
// how much of the budget remains. Redis errors degrade to the local
// fallback rather than rejecting traffic.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, int) {
	if l.rdb == nil {
		return l.fallback.allow(key)
	}

	now := time.Now()
	windowStart := now.Add(-l.window)

	result, err := l.rdb.Eval(ctx, allowScript, []string{l.redisKey(key)},
		float64(now.UnixMicro())/1e6,
		float64(windowStart.UnixMicro())/1e6,
		l.capacity,
		l.burst,
		l.window.Milliseconds(),
	).Result()
	if err != nil {
		return l.fallback.allow(key)
	}

	res := result.([]interface{})
	return res[0].(int64) == 1, int(res[1].(int64))
}

// Reset clears the budget for a key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if l.rdb == nil {
		l.fallback.reset(key)
		return nil
	}
	return l.rdb.Del(ctx, l.redisKey(key), l.redisKey(key)+":seq").Err()
}

func (l *Limiter) redisKey(key string) string {
	return fmt.Sprintf("ratelimit:sw:%s", key)
}

// localLimiter is the in-process token bucket used when Redis is down.
type localLimiter struct {
	capacity int
	window   time.Duration
	mu       sync.Mutex
	buckets  map[string]*bucket
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

func newLocalLimiter(capacity int, window time.Duration) *localLimiter {
	l := &localLimiter{
		capacity: capacity,
		window:   window,
		buckets:  make(map[string]*bucket),
	}
	go l.cleanup()
	return l
}

func (l *localLimiter) allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.lastReset) >= l.window {
		l.buckets[key] = &bucket{tokens: l.capacity - 1, lastReset: now}
		return true, l.capacity - 1
	}
	if b.tokens > 0 {
		b.tokens--
		return true, b.tokens
	}
	return false, 0
}

func (l *localLimiter) reset(key string) {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

func (l *localLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for k, b := range l.buckets {
			if now.Sub(b.lastReset) >= l.window*2 {
				delete(l.buckets, k)
			}
		}
		l.mu.Unlock()
	}
}
