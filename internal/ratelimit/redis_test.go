package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedis_EnforcesWindowLimit(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	l := NewRedis(rdb, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "+15125551234")
		if err != nil {
			t.Fatalf("Allow() error: %v", err)
		}
		if !ok {
			t.Fatalf("expected send %d to be allowed", i+1)
		}
	}

	ok, err := l.Allow(ctx, "+15125551234")
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if ok {
		t.Fatalf("expected third send in the window to be blocked")
	}

	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected one counter key, got %v", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl <= 0 {
		t.Fatalf("expected counter key to expire, ttl=%v", ttl)
	}
}

func TestRedis_WindowExpires(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	l := NewRedis(rdb, 1)
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "+15125551234"); !ok {
		t.Fatalf("first send blocked")
	}
	if ok, _ := l.Allow(ctx, "+15125551234"); ok {
		t.Fatalf("second send in the window not blocked")
	}

	// Let the counter key expire; the budget resets.
	mr.FastForward(3 * time.Minute)

	if ok, err := l.Allow(ctx, "+15125551234"); err != nil || !ok {
		t.Fatalf("expected send allowed after window expiry, ok=%v err=%v", ok, err)
	}
}

func TestRedis_SurfacesBackendErrors(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedis(rdb, 1)

	mr.Close()

	if _, err := l.Allow(context.Background(), "+15125551234"); err == nil {
		t.Fatalf("expected error when redis is unreachable")
	}
}
