package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"orderdesk/pkg/log"
)

// Resource families with independent version counters.
const (
	ResourceOrders    = "orders"
	ResourceStock     = "stock"
	ResourceCustomers = "customers"
)

// ComputeFunc produces the response payload for a cache miss. It returns
// the serialized payload and the number of rows it contains; empty
// results are returned to the caller but never stored, so data created
// concurrently with a version bump cannot be masked by a cached empty
// page.
type ComputeFunc func() ([]byte, int, error)

// VersionedCache serves listing responses through Redis, namespacing
// keys by a per-resource version counter. Mutations bump the counter,
// which orphans every previously written key; orphans expire via TTL
// and are never actively deleted.
type VersionedCache struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
}

// New creates a versioned cache. A nil client is allowed and yields an
// always-miss cache.
func New(client *redis.Client, keyPrefix string, defaultTTL time.Duration) *VersionedCache {
	if keyPrefix == "" {
		keyPrefix = "cache:"
	}
	if defaultTTL == 0 {
		defaultTTL = 5 * time.Minute
	}
	return &VersionedCache{
		client:     client,
		keyPrefix:  keyPrefix,
		defaultTTL: defaultTTL,
	}
}

// DefaultTTL returns the configured entry TTL.
func (c *VersionedCache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

func (c *VersionedCache) versionKey(resource string) string {
	return c.keyPrefix + "version:" + resource
}

// Version reads the current cache version for a resource family,
// initializing an absent counter to 1. Returns 0 when Redis is
// unavailable, which callers treat as "bypass the cache".
func (c *VersionedCache) Version(ctx context.Context, resource string) int64 {
	if c.client == nil {
		return 0
	}

	key := c.versionKey(resource)
	version, err := c.client.Get(ctx, key).Int64()
	if err == nil {
		return version
	}

	if errors.Is(err, redis.Nil) {
		// SETNX so a concurrent initializer wins at most once.
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			log.WithError(err).WithField("resource", resource).Warn("Failed to initialize cache version")
			return 0
		}
		return 1
	}

	log.WithError(err).WithField("resource", resource).Warn("Failed to read cache version")
	return 0
}

// BumpVersion atomically increments the version counter for a resource
// family, orphaning all keys written under earlier versions. Best
// effort: on Redis failure the bump is logged and skipped, leaving a
// stale window bounded by the entry TTL.
func (c *VersionedCache) BumpVersion(ctx context.Context, resource string) {
	if c.client == nil {
		return
	}

	if err := c.client.Incr(ctx, c.versionKey(resource)).Err(); err != nil {
		log.WithError(err).WithField("resource", resource).Warn("Failed to bump cache version")
	}
}

// BuildKey composes a deterministic cache key from the version, method
// and canonical request URL. Query parameters stay in the key: different
// filter and cursor combinations are distinct entries.
func (c *VersionedCache) BuildKey(resource string, version int64, method, requestURI string) string {
	return fmt.Sprintf("%s%s:v%d:%s:%s", c.keyPrefix, resource, version, method, requestURI)
}

// ReadThrough looks up key and returns the stored payload on a hit. On a
// miss it invokes compute, stores non-empty results with the given TTL
// and returns the fresh payload. A version of 0 or any Redis failure
// degrades to compute-only; the caller still gets a valid response.
func (c *VersionedCache) ReadThrough(ctx context.Context, key string, version int64, ttl time.Duration, compute ComputeFunc) ([]byte, bool, error) {
	cacheable := c.client != nil && version > 0

	if cacheable {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return payload, true, nil
		}
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).WithField("key", key).Warn("Cache lookup failed")
			cacheable = false
		}
	}

	payload, count, err := compute()
	if err != nil {
		return nil, false, err
	}

	if cacheable && count > 0 {
		if ttl == 0 {
			ttl = c.defaultTTL
		}
		if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
			log.WithError(err).WithField("key", key).Warn("Failed to populate cache")
		}
	}

	return payload, false, nil
}
