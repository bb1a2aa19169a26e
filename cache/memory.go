package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements an in-memory tagged cache with TTL support. It is
// process-local: suitable for single-instance deployments and tests.
type MemoryStore struct {
	data   sync.Map
	config Config
	cancel context.CancelFunc

	mu   sync.Mutex
	tags map[string]map[string]struct{} // tag -> member keys
}

// cacheItem represents an item stored in the cache
type cacheItem struct {
	value      []byte
	expiration time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithConfig(DefaultConfig())
}

// NewMemoryStoreWithConfig creates a new in-memory store with custom configuration
func NewMemoryStoreWithConfig(config Config) *MemoryStore {
	ctx, cancel := context.WithCancel(context.Background())
	ms := &MemoryStore{
		config: config,
		cancel: cancel,
		tags:   make(map[string]map[string]struct{}),
	}

	// Start background goroutine to clean up expired items
	go ms.cleanupExpired(ctx)

	return ms
}

// Get retrieves a value from the cache
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullKey := m.config.Prefix + key

	value, ok := m.data.Load(fullKey)
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}

	item := value.(cacheItem)

	// Check if item has expired
	if !item.expiration.IsZero() && time.Now().After(item.expiration) {
		m.data.Delete(fullKey)
		return nil, ErrCacheMiss{Key: key}
	}

	return item.value, nil
}

// Set stores a value in the cache with a TTL, recording tag membership
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullKey := m.config.Prefix + key

	// Use default TTL if none provided
	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	item := cacheItem{
		value: value,
	}

	// Set expiration if TTL is positive
	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}

	m.data.Store(fullKey, item)

	if len(tags) > 0 {
		m.mu.Lock()
		for _, tag := range tags {
			members, ok := m.tags[tag]
			if !ok {
				members = make(map[string]struct{})
				m.tags[tag] = members
			}
			members[fullKey] = struct{}{}
		}
		m.mu.Unlock()
	}

	return nil
}

// Delete removes a value from the cache
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.data.Delete(m.config.Prefix + key)
	return nil
}

// Invalidate removes every value written under tag
func (m *MemoryStore) Invalidate(ctx context.Context, tag string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	members := m.tags[tag]
	delete(m.tags, tag)
	m.mu.Unlock()

	for fullKey := range members {
		m.data.Delete(fullKey)
	}
	return nil
}

// Close stops the background cleanup goroutine
func (m *MemoryStore) Close() error {
	m.cancel()
	return nil
}

// cleanupExpired periodically removes expired items from the cache
func (m *MemoryStore) cleanupExpired(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			m.data.Range(func(key, value interface{}) bool {
				item := value.(cacheItem)
				if !item.expiration.IsZero() && now.After(item.expiration) {
					m.data.Delete(key)
				}
				return true
			})
		}
	}
}
