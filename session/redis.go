package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed session store. Each operation maps onto one
// Redis command, so per-token atomicity is provided by the server.
//
//	Get:    GETEX key PX ttl
//	Set:    SET key 1 PX ttl
//	Delete: DEL key
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a [RedisStore] backed by the given client. prefix sets
// the key namespace; ttl is the sliding idle lifetime.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	if prefix == "" {
		prefix = "rs"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) key(token string) string {
	return s.prefix + ":" + token
}

// TTL returns the configured idle lifetime.
func (s *RedisStore) TTL() time.Duration {
	return s.ttl
}

func (s *RedisStore) Get(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	v, err := s.redis.GetEx(ctx, s.key(token), s.ttl).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return v == Live, nil
}

func (s *RedisStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.redis.Set(ctx, s.key(token), Live, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.redis.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Len scans the key namespace and counts matches. This is an O(n) admin
// operation and must not be used in request hot paths.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	pattern := s.prefix + ":*"
	var (
		cursor uint64
		total  int
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return total, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
