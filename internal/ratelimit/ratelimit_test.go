package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/licitabot/backend/internal/config"
	"github.com/redis/go-redis/v9"
)

func testConfig() *config.Config {
	return &config.Config{
		RateLimit: config.RateLimitConfig{
			GlobalMax:    1000,
			GlobalWindow: 60 * time.Second,
			MLMax:        3,
			MLWindow:     60 * time.Second,
			SearchMax:    5,
			SearchWindow: 60 * time.Second,
		},
	}
}

func TestLimiterRejectsOverBucketMax(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := New(rdb, testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, BucketML, "1.2.3.4") {
			t.Fatalf("call %d should be admitted", i+1)
		}
	}
	if l.Allow(ctx, BucketML, "1.2.3.4") {
		t.Fatal("call over bucket max should be rejected")
	}
}

func TestLimiterCountersArePerCaller(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := New(rdb, testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Allow(ctx, BucketML, "1.2.3.4")
	}
	if l.Allow(ctx, BucketML, "1.2.3.4") {
		t.Fatal("saturated caller should be rejected")
	}
	if !l.Allow(ctx, BucketML, "5.6.7.8") {
		t.Fatal("a different caller should be admitted")
	}
}

func TestLimiterAdmitsAfterWindowExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := New(rdb, testConfig())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.Allow(ctx, BucketML, "1.2.3.4")
	}
	if l.Allow(ctx, BucketML, "1.2.3.4") {
		t.Fatal("expected rejection before window expiry")
	}

	mr.FastForward(61 * time.Second)

	if !l.Allow(ctx, BucketML, "1.2.3.4") {
		t.Fatal("expected admission after the window expired")
	}
}

func TestLimiterUnknownBucketFallsBackToGlobal(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := New(rdb, testConfig())
	if !l.Allow(context.Background(), "no-such-bucket", "1.2.3.4") {
		t.Fatal("unknown bucket should fall back to the global limit")
	}
	if got := mr.Keys(); len(got) != 1 || got[0] != "rl:global:1.2.3.4" {
		t.Fatalf("expected a global counter key, got %v", got)
	}
}

func TestLimiterFailsOpen(t *testing.T) {
	ctx := context.Background()

	// No backend at all.
	l := New(nil, testConfig())
	if !l.Allow(ctx, BucketML, "1.2.3.4") {
		t.Fatal("nil backend should admit everything")
	}

	// Backend gone away mid-flight.
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l = New(rdb, testConfig())
	mr.Close()
	if !l.Allow(ctx, BucketML, "1.2.3.4") {
		t.Fatal("unreachable backend should fail open")
	}
}
