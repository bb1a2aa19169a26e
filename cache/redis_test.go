package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	// Create a mock Redis server
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStoreWithClient(client, DefaultConfig())
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestNewRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config := DefaultRedisConfig()
	config.Addr = mr.Addr()

	store, err := NewRedisStore(config)
	require.NoError(t, err)
	assert.NotNil(t, store)
	defer store.Close()
}

func TestNewRedisStore_ConnectionError(t *testing.T) {
	config := DefaultRedisConfig()
	config.Addr = "localhost:99999" // Invalid port

	_, err := NewRedisStore(config)
	assert.Error(t, err)
}

func TestRedisStore_SetAndGet(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	err := store.Set(ctx, "table:posts", []byte("envelope"), time.Minute)
	require.NoError(t, err)

	value, err := store.Get(ctx, "table:posts")
	require.NoError(t, err)
	assert.Equal(t, []byte("envelope"), value)
}

func TestRedisStore_GetMiss(t *testing.T) {
	store, _ := setupTestRedis(t)

	_, err := store.Get(context.Background(), "nonexistent")
	assert.Error(t, err)
	assert.True(t, IsCacheMiss(err))
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "table:posts", []byte("envelope"), 0))
	require.NoError(t, store.Delete(ctx, "table:posts"))

	_, err := store.Get(ctx, "table:posts")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisStore_InvalidateTag(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "table:posts", []byte("a"), 0, "conn-1"))
	require.NoError(t, store.Set(ctx, "table:users", []byte("b"), 0, "conn-1"))
	require.NoError(t, store.Set(ctx, "table:other", []byte("c"), 0, "conn-2"))

	require.NoError(t, store.Invalidate(ctx, "conn-1"))

	_, err := store.Get(ctx, "table:posts")
	assert.True(t, IsCacheMiss(err))
	_, err = store.Get(ctx, "table:users")
	assert.True(t, IsCacheMiss(err))

	// Entries under other tags survive.
	value, err := store.Get(ctx, "table:other")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), value)
}

func TestRedisStore_InvalidateUnknownTag(t *testing.T) {
	store, _ := setupTestRedis(t)
	assert.NoError(t, store.Invalidate(context.Background(), "no-such-tag"))
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "table:posts", []byte("envelope"), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "table:posts")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisStore_MultipleTags(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "table:posts", []byte("a"), 0, "conn-1", "all"))

	require.NoError(t, store.Invalidate(ctx, "all"))

	_, err := store.Get(ctx, "table:posts")
	assert.True(t, IsCacheMiss(err))
}
