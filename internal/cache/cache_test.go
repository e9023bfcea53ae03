package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func setupTestCache(t *testing.T) (*VersionedCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, "test:", time.Minute), mr
}

func TestVersion_InitializesToOne(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	version := c.Version(ctx, ResourceOrders)
	assert.Equal(t, int64(1), version)

	// counter persists in redis
	stored, err := mr.Get("test:version:orders")
	assert.NoError(t, err)
	assert.Equal(t, "1", stored)

	// subsequent reads see the same value
	assert.Equal(t, int64(1), c.Version(ctx, ResourceOrders))
}

func TestBumpVersion_Increments(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	assert.Equal(t, int64(1), c.Version(ctx, ResourceStock))

	c.BumpVersion(ctx, ResourceStock)
	assert.Equal(t, int64(2), c.Version(ctx, ResourceStock))

	c.BumpVersion(ctx, ResourceStock)
	c.BumpVersion(ctx, ResourceStock)
	assert.Equal(t, int64(4), c.Version(ctx, ResourceStock))
}

func TestVersion_IndependentPerResource(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	c.Version(ctx, ResourceOrders)
	c.Version(ctx, ResourceStock)

	c.BumpVersion(ctx, ResourceOrders)

	assert.Equal(t, int64(2), c.Version(ctx, ResourceOrders))
	assert.Equal(t, int64(1), c.Version(ctx, ResourceStock))
}

func TestBuildKey(t *testing.T) {
	c, _ := setupTestCache(t)

	key := c.BuildKey(ResourceOrders, 3, "GET", "/api/v1/orders?limit=20")
	assert.Equal(t, "test:orders:v3:GET:/api/v1/orders?limit=20", key)

	// different query strings produce distinct keys
	other := c.BuildKey(ResourceOrders, 3, "GET", "/api/v1/orders?limit=50")
	assert.NotEqual(t, key, other)
}

func TestReadThrough_MissThenHit(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	version := c.Version(ctx, ResourceOrders)
	key := c.BuildKey(ResourceOrders, version, "GET", "/orders")

	computed := 0
	compute := func() ([]byte, int, error) {
		computed++
		return []byte(`{"rows":2}`), 2, nil
	}

	payload, hit, err := c.ReadThrough(ctx, key, version, 0, compute)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte(`{"rows":2}`), payload)
	assert.Equal(t, 1, computed)

	payload, hit, err = c.ReadThrough(ctx, key, version, 0, compute)
	assert.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte(`{"rows":2}`), payload)
	assert.Equal(t, 1, computed, "hit must not recompute")
}

func TestReadThrough_EmptyResultNotCached(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	version := c.Version(ctx, ResourceOrders)
	key := c.BuildKey(ResourceOrders, version, "GET", "/orders")

	computed := 0
	compute := func() ([]byte, int, error) {
		computed++
		return []byte(`{"rows":0}`), 0, nil
	}

	payload, hit, err := c.ReadThrough(ctx, key, version, 0, compute)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte(`{"rows":0}`), payload)
	assert.False(t, mr.Exists(key))

	// the next read recomputes instead of serving a cached empty page
	_, hit, err = c.ReadThrough(ctx, key, version, 0, compute)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, computed)
}

func TestReadThrough_BumpOrphansOldEntries(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	compute := func(payload string) ComputeFunc {
		return func() ([]byte, int, error) {
			return []byte(payload), 1, nil
		}
	}

	version := c.Version(ctx, ResourceOrders)
	key := c.BuildKey(ResourceOrders, version, "GET", "/orders")

	_, _, err := c.ReadThrough(ctx, key, version, 0, compute("old"))
	assert.NoError(t, err)

	c.BumpVersion(ctx, ResourceOrders)

	newVersion := c.Version(ctx, ResourceOrders)
	assert.Greater(t, newVersion, version)

	newKey := c.BuildKey(ResourceOrders, newVersion, "GET", "/orders")
	assert.NotEqual(t, key, newKey)

	payload, hit, err := c.ReadThrough(ctx, newKey, newVersion, 0, compute("fresh"))
	assert.NoError(t, err)
	assert.False(t, hit, "bumped version must miss")
	assert.Equal(t, []byte("fresh"), payload)
}

func TestReadThrough_ComputeErrorPropagates(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	version := c.Version(ctx, ResourceOrders)
	key := c.BuildKey(ResourceOrders, version, "GET", "/orders")

	wantErr := errors.New("query failed")
	payload, hit, err := c.ReadThrough(ctx, key, version, 0, func() ([]byte, int, error) {
		return nil, 0, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.False(t, hit)
	assert.Nil(t, payload)
	assert.False(t, mr.Exists(key))
}

func TestReadThrough_DegradedWithoutRedis(t *testing.T) {
	c := New(nil, "test:", time.Minute)
	ctx := context.Background()

	assert.Equal(t, int64(0), c.Version(ctx, ResourceOrders))

	computed := 0
	payload, hit, err := c.ReadThrough(ctx, "test:key", 0, 0, func() ([]byte, int, error) {
		computed++
		return []byte("db"), 1, nil
	})
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("db"), payload)
	assert.Equal(t, 1, computed)

	// bump is a no-op, not a panic
	c.BumpVersion(ctx, ResourceOrders)
}

func TestReadThrough_RedisDownDegrades(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	version := c.Version(ctx, ResourceOrders)
	key := c.BuildKey(ResourceOrders, version, "GET", "/orders")

	mr.Close()

	payload, hit, err := c.ReadThrough(ctx, key, version, 0, func() ([]byte, int, error) {
		return []byte("db"), 1, nil
	})
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("db"), payload)

	// version reads degrade to 0 once redis is gone
	assert.Equal(t, int64(0), c.Version(ctx, ResourceOrders))
}

func TestReadThrough_EntriesExpire(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	version := c.Version(ctx, ResourceOrders)
	key := c.BuildKey(ResourceOrders, version, "GET", "/orders")

	_, _, err := c.ReadThrough(ctx, key, version, 30*time.Second, func() ([]byte, int, error) {
		return []byte("rows"), 1, nil
	})
	assert.NoError(t, err)
	assert.True(t, mr.Exists(key))

	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists(key))
}
