// Package cache provides tagged, TTL-bound key-value stores used to persist
// schema metadata across processes. Backends implement the Store interface;
// a Redis-backed store and an in-memory store are provided.
package cache

import (
	"context"
	"time"
)

// Store defines the interface for all cache backends. Beyond plain
// get/set/delete, entries may be written under invalidation tags; Invalidate
// removes every entry written under a tag in one call.
type Store interface {
	// Get retrieves a value from the cache. A missing key yields an
	// ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL, associating it with the given tags.
	// A zero TTL uses the store's default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error

	// Delete removes a single value from the cache
	Delete(ctx context.Context, key string) error

	// Invalidate removes every value written under tag
	Invalidate(ctx context.Context, tag string) error
}

// Config holds common configuration for cache backends
type Config struct {
	// DefaultTTL is the default time-to-live for cached items
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys and tag keys
	Prefix string
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL: time.Hour,
		Prefix:     "schemakit:",
	}
}

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	_, ok := err.(ErrCacheMiss)
	return ok
}
