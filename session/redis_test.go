package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store, err := NewRedisStore(rdb, "rs", ttl)
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	return store, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestRedisStoreSetGetDelete(t *testing.T) {
	store, mr, done := newRedisStoreTest(t, time.Minute)
	defer done()
	ctx := context.Background()

	if err := store.Set(ctx, "tok-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("rs:tok-1") {
		t.Fatal("expected namespaced key in redis")
	}

	live, err := store.Get(ctx, "tok-1")
	if err != nil || !live {
		t.Fatalf("expected live token, got live=%v err=%v", live, err)
	}

	if err := store.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if live, _ := store.Get(ctx, "tok-1"); live {
		t.Fatal("expected deleted token to be absent")
	}
}

func TestRedisStoreExpiresAndSlides(t *testing.T) {
	store, mr, done := newRedisStoreTest(t, time.Minute)
	defer done()
	ctx := context.Background()

	_ = store.Set(ctx, "tok-1")
	mr.FastForward(50 * time.Second)
	if live, _ := store.Get(ctx, "tok-1"); !live {
		t.Fatal("expected token live within ttl")
	}

	mr.FastForward(50 * time.Second)
	if live, _ := store.Get(ctx, "tok-1"); !live {
		t.Fatal("expected get to have refreshed ttl")
	}

	mr.FastForward(61 * time.Second)
	if live, _ := store.Get(ctx, "tok-1"); live {
		t.Fatal("expected token to expire after idle ttl")
	}
}

func TestRedisStoreEmptyTokenIsNoop(t *testing.T) {
	store, mr, done := newRedisStoreTest(t, time.Minute)
	defer done()
	ctx := context.Background()

	if err := store.Set(ctx, ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", mr.Keys())
	}
}

func TestRedisStoreLenAndPing(t *testing.T) {
	store, _, done := newRedisStoreTest(t, time.Minute)
	defer done()
	ctx := context.Background()

	for _, tok := range []string{"a", "b", "c"} {
		_ = store.Set(ctx, tok)
	}
	n, err := store.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 sessions, got %d", n)
	}
	if _, err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	store, err := NewRedisStore(rdb, "rs", time.Minute)
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	mr.Close()

	_, err = store.Get(context.Background(), "tok-1")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ping to fail with ErrRedisUnavailable, got %v", err)
	}
}

func TestNewRedisStoreValidation(t *testing.T) {
	if _, err := NewRedisStore(nil, "rs", time.Minute); err == nil {
		t.Fatal("expected error for nil client")
	}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	if _, err := NewRedisStore(rdb, "rs", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
}
