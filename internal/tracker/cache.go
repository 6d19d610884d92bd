// internal/tracker/cache.go
package tracker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// TypeCache caches createmeta issue-type lists in redis, keyed by instance and
// project. A nil cache (no REDIS_URL) is valid and always misses.
type TypeCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTypeCache(rdb *redis.Client) *TypeCache {
	if rdb == nil {
		return nil
	}
	return &TypeCache{rdb: rdb, ttl: 10 * time.Minute}
}

func (c *TypeCache) Get(ctx context.Context, key string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, "issuetypes:"+key).Bytes()
	if err != nil {
		return nil, false
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, false
	}
	return names, true
}

func (c *TypeCache) Put(ctx context.Context, key string, names []string) {
	if c == nil || len(names) == 0 {
		return
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, "issuetypes:"+key, raw, c.ttl).Err()
}
