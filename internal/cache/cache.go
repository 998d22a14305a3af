// Package cache is a Redis read-through cache for triage results, keyed by
// normalized request text plus neighborhood. Identical requests from the
// same area skip the whole pipeline while the entry lives.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linnemanlabs/servicesense/internal/entity"
	"github.com/linnemanlabs/servicesense/internal/triage"
)

const keyPrefix = "triage:"

// Cache implements triage.Cache over Redis.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a cache client. It does not connect; call Ping to verify.
func New(addr, password string, db int, ttl time.Duration) *Cache {
	return &Cache{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

// Ping verifies the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Lookup returns the cached result for this text and location, if any.
func (c *Cache) Lookup(ctx context.Context, text string, loc *entity.Location) (*triage.Result, bool, error) {
	data, err := c.rdb.Get(ctx, Key(text, loc)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var r triage.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	return &r, true, nil
}

// Save stores a result under the cache TTL.
func (c *Cache) Save(ctx context.Context, text string, loc *entity.Location, result *triage.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(text, loc), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Key derives the cache key: whitespace-normalized lower-cased text plus the
// neighborhood, hashed so arbitrary user text never lands in Redis keys.
func Key(text string, loc *entity.Location) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))

	var hood string
	if loc != nil {
		hood = strings.ToLower(loc.Neighborhood)
	}

	sum := sha256.Sum256([]byte(normalized + "|" + hood))
	return keyPrefix + hex.EncodeToString(sum[:])
}
