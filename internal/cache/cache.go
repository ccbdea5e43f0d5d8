/**
 * @description
 * Process-external cache on Redis with per-family TTLs.
 * Keys are colon-joined tokens; a miss is never an error and an absent
 * backend degrades every call to a pass-through, so callers always fall
 * back to recomputing from the store.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9
 */

package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/licitabot/backend/internal/logger"
	"github.com/redis/go-redis/v9"
)

// Family groups keys that share a TTL.
type Family string

const (
	FamilyStats      Family = "stats"
	FamilyListing    Family = "listing"
	FamilyDetail     Family = "detail"
	FamilyMLPrice    Family = "ml_price"
	FamilyRAG        Family = "rag"
	FamilyEmbeddings Family = "embeddings"
	FamilyDefault    Family = "default"
)

// TTL returns the fixed TTL of a family.
func (f Family) TTL() time.Duration {
	switch f {
	case FamilyStats:
		return time.Hour
	case FamilyListing:
		return 10 * time.Minute
	case FamilyDetail:
		return 15 * time.Minute
	case FamilyMLPrice:
		return 2 * time.Hour
	case FamilyRAG:
		return time.Hour
	case FamilyEmbeddings:
		return 24 * time.Hour
	default:
		return 15 * time.Minute
	}
}

// Cache wraps an optional Redis client. A nil client is valid and turns
// every operation into a no-op.
type Cache struct {
	rdb *redis.Client
}

// New wraps rdb, which may be nil when Redis is not configured.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Enabled reports whether a backend is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Key joins tokens into the canonical colon-separated form.
func Key(tokens ...string) string {
	return strings.Join(tokens, ":")
}

// Get fetches a raw value. The bool is false on miss, on error, and when
// the backend is absent.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores a raw value with the family's TTL. Errors are logged, never
// surfaced: the cache is opportunistic.
func (c *Cache) Set(ctx context.Context, key, value string, family Family) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Set(ctx, key, value, family.TTL()).Err(); err != nil {
		logger.Error("cache set failed for %s: %v", key, err)
	}
}

// GetJSON fetches and unmarshals a cached value into dest.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	val, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false
	}
	return true
}

// SetJSON marshals and stores a value with the family's TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, family Family) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		logger.Error("cache marshal failed for %s: %v", key, err)
		return
	}
	c.Set(ctx, key, string(data), family)
}

// DeletePattern removes every key matching the glob pattern via SCAN so
// large keyspaces aren't blocked by a KEYS call.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) int64 {
	if !c.Enabled() {
		return 0
	}
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, pattern, 200).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err == nil {
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		logger.Error("cache scan failed for %s: %v", pattern, err)
	}
	return deleted
}

// Flush drops the whole cache database.
func (c *Cache) Flush(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.FlushDB(ctx).Err(); err != nil {
		logger.Error("cache flush failed: %v", err)
	}
}

// Stats reports backend availability and key count.
type Stats struct {
	Enabled bool  `json:"enabled"`
	Keys    int64 `json:"keys"`
}

// GetStats returns cache stats; zero values when the backend is absent.
func (c *Cache) GetStats(ctx context.Context) Stats {
	if !c.Enabled() {
		return Stats{}
	}
	keys, err := c.rdb.DBSize(ctx).Result()
	if err != nil {
		return Stats{Enabled: true}
	}
	return Stats{Enabled: true, Keys: keys}
}
