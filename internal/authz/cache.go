package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const grantVersionKey = "authz:grants:version"

// Cache is a versioned Redis cache for flattened (user, scope) action sets.
// Writes that change grants bump the version, invalidating every cached entry
// at once; stale keys expire through their TTL. A nil Cache is valid and
// always falls through to the loader.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, grantVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, grantVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Bump invalidates all cached grants by incrementing the version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, grantVersionKey).Err()
}

// Actions loads the cached action set for (userID, scope), filling from the
// loader on a miss. Concurrent misses for the same key share one loader call.
// Cache failures degrade to the loader so an unavailable Redis never turns
// into a denial.
func (c *Cache) Actions(ctx context.Context, userID string, scope Scope, loader func(context.Context) ([]Action, error)) ([]Action, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	ver, err := c.Version(ctx)
	if err != nil {
		return loader(ctx)
	}
	key := fmt.Sprintf("authz:grants:%d:%s:%s", ver, userID, scope)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var actions []Action
		if err := json.Unmarshal(payload, &actions); err == nil {
			return actions, nil
		}
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		actions, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if encoded, err := json.Marshal(actions); err == nil {
			_ = c.client.Set(ctx, key, encoded, c.ttl).Err()
		}
		return actions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Action), nil
}
