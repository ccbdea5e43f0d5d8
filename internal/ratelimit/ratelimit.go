/**
 * @description
 * Sliding-window rate limiter on Redis counters.
 * One counter per (bucket, caller): INCR on every call, TTL = window on the
 * first increment, reject once the counter exceeds the bucket max.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9
 *
 * @notes
 * - Cooperative: callers must honor the result, nothing is enforced here.
 * - Fails open when the cache backend is down or absent.
 */

package ratelimit

import (
	"context"
	"time"

	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/logger"
	"github.com/redis/go-redis/v9"
)

// Well-known bucket names.
const (
	BucketGlobal = "global"
	BucketML     = "ml"
	BucketSearch = "search"
)

// Bucket is one named limit.
type Bucket struct {
	Name   string
	Max    int
	Window time.Duration
}

// Limiter tracks per-caller counters in Redis.
type Limiter struct {
	rdb     *redis.Client
	buckets map[string]Bucket
}

// New builds a Limiter with the configured buckets. rdb may be nil; the
// limiter then admits everything.
func New(rdb *redis.Client, cfg *config.Config) *Limiter {
	return &Limiter{
		rdb: rdb,
		buckets: map[string]Bucket{
			BucketGlobal: {Name: BucketGlobal, Max: cfg.RateLimit.GlobalMax, Window: cfg.RateLimit.GlobalWindow},
			BucketML:     {Name: BucketML, Max: cfg.RateLimit.MLMax, Window: cfg.RateLimit.MLWindow},
			BucketSearch: {Name: BucketSearch, Max: cfg.RateLimit.SearchMax, Window: cfg.RateLimit.SearchWindow},
		},
	}
}

// Allow counts one call by caller against bucket and reports whether it is
// under the limit.
func (l *Limiter) Allow(ctx context.Context, bucket, caller string) bool {
	if l == nil || l.rdb == nil {
		return true
	}
	b, ok := l.buckets[bucket]
	if !ok {
		b = l.buckets[BucketGlobal]
	}

	key := "rl:" + b.Name + ":" + caller
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		// Redis down: fail open rather than reject traffic.
		logger.Error("rate limiter INCR failed for %s: %v", key, err)
		return true
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, b.Window).Err(); err != nil {
			logger.Error("rate limiter EXPIRE failed for %s: %v", key, err)
		}
	}
	return count <= int64(b.Max)
}
