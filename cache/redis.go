package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements a Redis-backed tagged cache. Tag membership is kept
// in Redis sets alongside the entries, so invalidating a tag deletes every
// member key in one round trip. The backing Redis may be shared across
// processes; concurrent writers for the same key race with last-write-wins.
type RedisStore struct {
	client *redis.Client
	config Config
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Config holds common cache configuration
	Config Config
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     "localhost:6379",
		Password: "",
		DB:       0,
		Config:   DefaultConfig(),
	}
}

// NewRedisStore creates a new Redis store with custom configuration,
// verifying the connection before returning.
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{
		client: client,
		config: config.Config,
	}, nil
}

// NewRedisStoreWithClient creates a new Redis store with an existing client
func NewRedisStoreWithClient(client *redis.Client, config Config) *RedisStore {
	return &RedisStore{
		client: client,
		config: config,
	}
}

// Get retrieves a value from the cache
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	fullKey := r.config.Prefix + key

	value, err := r.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss{Key: key}
		}
		return nil, err
	}

	return value, nil
}

// Set stores a value in the cache with a TTL, recording tag membership
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	fullKey := r.config.Prefix + key

	// Use default TTL if none provided
	if ttl == 0 {
		ttl = r.config.DefaultTTL
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, fullKey, value, ttl)
	for _, tag := range tags {
		tagKey := r.tagKey(tag)
		pipe.SAdd(ctx, tagKey, fullKey)
		if ttl > 0 {
			// The tag set must outlive its members or invalidation
			// would miss entries still present under a longer TTL.
			pipe.Expire(ctx, tagKey, 2*ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes a value from the cache. The key stays in any tag sets it
// was written under; invalidating those tags later is a no-op for it.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	fullKey := r.config.Prefix + key
	return r.client.Del(ctx, fullKey).Err()
}

// Invalidate removes every value written under tag
func (r *RedisStore) Invalidate(ctx context.Context, tag string) error {
	tagKey := r.tagKey(tag)

	members, err := r.client.SMembers(ctx, tagKey).Result()
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	for _, member := range members {
		pipe.Del(ctx, member)
	}
	pipe.Del(ctx, tagKey)
	_, err = pipe.Exec(ctx)
	return err
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) tagKey(tag string) string {
	return r.config.Prefix + "tag:" + tag
}
