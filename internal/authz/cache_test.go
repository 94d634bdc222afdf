package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheFillsAndServesWithoutLoader(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) ([]Action, error) {
		loads++
		return []Action{ActionMessageRead, ActionMessageCreate}, nil
	}

	actions, err := cache.Actions(ctx, "u1", Community("com-1"), loader)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Action{ActionMessageRead, ActionMessageCreate}, actions)
	assert.Equal(t, 1, loads)

	actions, err = cache.Actions(ctx, "u1", Community("com-1"), loader)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Action{ActionMessageRead, ActionMessageCreate}, actions)
	assert.Equal(t, 1, loads, "second read must come from the cache")
}

func TestCacheKeysAreScopeSpecific(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_, err := cache.Actions(ctx, "u1", Community("com-1"), func(context.Context) ([]Action, error) {
		return []Action{ActionMessageRead}, nil
	})
	require.NoError(t, err)

	actions, err := cache.Actions(ctx, "u1", Instance, func(context.Context) ([]Action, error) {
		return []Action{ActionUserView}, nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Action{ActionUserView}, actions)
}

func TestCacheBumpInvalidates(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) ([]Action, error) {
		loads++
		return []Action{ActionMessageRead}, nil
	}

	_, err := cache.Actions(ctx, "u1", Instance, loader)
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx))

	_, err = cache.Actions(ctx, "u1", Instance, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, loads, "bump must force a reload")
}

func TestNilCacheFallsThrough(t *testing.T) {
	var cache *Cache

	actions, err := cache.Actions(context.Background(), "u1", Instance, func(context.Context) ([]Action, error) {
		return []Action{ActionUserView}, nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Action{ActionUserView}, actions)
	assert.NoError(t, cache.Bump(context.Background()))
}
