package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestMemory(t *testing.T) *MemoryStore {
	store := NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMemoryStore_SetAndGet(t *testing.T) {
	store := setupTestMemory(t)
	ctx := context.Background()

	err := store.Set(ctx, "table:posts", []byte("envelope"), time.Minute)
	require.NoError(t, err)

	value, err := store.Get(ctx, "table:posts")
	require.NoError(t, err)
	assert.Equal(t, []byte("envelope"), value)
}

func TestMemoryStore_GetMiss(t *testing.T) {
	store := setupTestMemory(t)

	_, err := store.Get(context.Background(), "nonexistent")
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryStore_Expiration(t *testing.T) {
	store := setupTestMemory(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "table:posts", []byte("envelope"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(ctx, "table:posts")
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryStore_Delete(t *testing.T) {
	store := setupTestMemory(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "table:posts", []byte("envelope"), 0))
	require.NoError(t, store.Delete(ctx, "table:posts"))

	_, err := store.Get(ctx, "table:posts")
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryStore_InvalidateTag(t *testing.T) {
	store := setupTestMemory(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "table:posts", []byte("a"), 0, "conn-1"))
	require.NoError(t, store.Set(ctx, "table:users", []byte("b"), 0, "conn-1"))
	require.NoError(t, store.Set(ctx, "table:other", []byte("c"), 0, "conn-2"))

	require.NoError(t, store.Invalidate(ctx, "conn-1"))

	_, err := store.Get(ctx, "table:posts")
	assert.True(t, IsCacheMiss(err))
	_, err = store.Get(ctx, "table:users")
	assert.True(t, IsCacheMiss(err))

	value, err := store.Get(ctx, "table:other")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), value)
}

func TestMemoryStore_ContextCancellation(t *testing.T) {
	store := setupTestMemory(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, store.Set(ctx, "k", []byte("v"), 0))
	_, err := store.Get(ctx, "k")
	assert.Error(t, err)
}
