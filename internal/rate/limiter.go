package rate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	MaxFailures int
	Window      time.Duration
	Prefix      string
}

// Limiter counts failures per key within a fixed window.
type Limiter interface {
	// Check reports ErrRateLimited once the key has MaxFailures failures in
	// the current window. It does not count anything.
	Check(ctx context.Context, key string) error
	// Fail records one failure for key.
	Fail(ctx context.Context, key string) error
	// Reset clears the counter for key.
	Reset(ctx context.Context, key string) error
}

/*
====================================
REDIS
====================================
*/

// RedisLimiter keeps counters in Redis so they are shared between
// processes.
type RedisLimiter struct {
	redis  redis.UniversalClient
	config Config
}

// NewRedis creates a [RedisLimiter] backed by the given Redis client.
func NewRedis(redisClient redis.UniversalClient, cfg Config) *RedisLimiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return &RedisLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *RedisLimiter) key(k string) string {
	return l.config.Prefix + ":" + k
}

// Check implements Limiter.
func (l *RedisLimiter) Check(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(l.config.MaxFailures) {
		return ErrRateLimited
	}

	return nil
}

// Fail implements Limiter.
func (l *RedisLimiter) Fail(ctx context.Context, key string) error {
	_, err := l.incrementWithTTL(ctx, l.key(key), l.config.Window)
	return err
}

// Reset implements Limiter.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Failures returns the current failure count for key. Missing keys return
// zero.
func (l *RedisLimiter) Failures(ctx context.Context, key string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *RedisLimiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

/*
====================================
MEMORY
====================================
*/

type window struct {
	count   int
	expires time.Time
}

// MemoryLimiter keeps counters in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	config  Config
	now     func() time.Time
	windows map[string]window
}

// NewMemory creates a [MemoryLimiter]. A nil now uses time.Now.
func NewMemory(cfg Config, now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{
		config:  cfg,
		now:     now,
		windows: make(map[string]window),
	}
}

// Check implements Limiter.
func (l *MemoryLimiter) Check(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.live(key)
	if ok && w.count >= l.config.MaxFailures {
		return ErrRateLimited
	}
	return nil
}

// Fail implements Limiter.
func (l *MemoryLimiter) Fail(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.live(key)
	if !ok {
		w = window{expires: l.now().Add(l.config.Window)}
		l.prune()
	}
	w.count++
	l.windows[key] = w
	return nil
}

// Reset implements Limiter.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
	return nil
}

// live returns the window for key if it has not expired. Caller holds mu.
func (l *MemoryLimiter) live(key string) (window, bool) {
	w, ok := l.windows[key]
	if !ok {
		return window{}, false
	}
	if !l.now().Before(w.expires) {
		delete(l.windows, key)
		return window{}, false
	}
	return w, true
}

// prune drops expired windows. Caller holds mu.
func (l *MemoryLimiter) prune() {
	now := l.now()
	for k, w := range l.windows {
		if !now.Before(w.expires) {
			delete(l.windows, k)
		}
	}
}
