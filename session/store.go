package session

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is the idle lifetime of a session when none is configured.
const DefaultTTL = 60 * time.Minute

// DefaultMaxEntries caps MemoryStore growth when no explicit bound is set.
const DefaultMaxEntries = 1 << 20

// Live is the liveness marker stored for every active token.
const Live = "1"

// ErrRedisUnavailable wraps transport failures reported by the Redis backend.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrInvalidTTL is returned by constructors given a non-positive TTL.
var ErrInvalidTTL = errors.New("session ttl must be > 0")

// Store is a concurrency-safe, time-expiring token cache.
//
// Every method is atomic with respect to concurrent callers. No ordering is
// enforced across calls.
type Store interface {
	// Get reports whether token is live and, if so, resets its age.
	// Absent or expired tokens report false with a nil error.
	Get(ctx context.Context, token string) (bool, error)
	// Set marks token live with age zero. An empty token is a no-op.
	Set(ctx context.Context, token string) error
	// Delete removes token. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error
	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)
	// Ping checks backend availability and reports its latency.
	Ping(ctx context.Context) (time.Duration, error)
}
