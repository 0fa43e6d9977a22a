package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akavache-go/akavache/internal/cachemodel"
	akerrors "github.com/akavache-go/akavache/internal/errors"
)

// InMemoryCache is a process-local cache with no persistence: a map
// guarded by a mutex, generalized to the byte-payload, typed-key
// contract the rest of the backends share.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	disposed atomic.Bool
}

type memoryEntry struct {
	value      []byte
	typeName   string
	createdAt  time.Time
	expiration time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiration)
}

// NewInMemory creates an empty in-memory cache.
func NewInMemory() *InMemoryCache {
	return &InMemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *InMemoryCache) checkOpen(op string) error {
	if c.disposed.Load() {
		return akerrors.Disposed(op)
	}
	return nil
}

// Insert implements Cache.
func (c *InMemoryCache) Insert(ctx context.Context, key string, value []byte, absoluteExpiration time.Time) error {
	return c.insert(key, "", value, absoluteExpiration)
}

// InsertTyped implements TypedCache.
func (c *InMemoryCache) InsertTyped(ctx context.Context, key, typeName string, value []byte, absoluteExpiration time.Time) error {
	return c.insert(key, typeName, value, absoluteExpiration)
}

func (c *InMemoryCache) insert(key, typeName string, value []byte, absoluteExpiration time.Time) error {
	if err := c.checkOpen("Insert"); err != nil {
		return err
	}
	expiration := absoluteExpiration
	if expiration.IsZero() {
		expiration = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{value: value, typeName: typeName, createdAt: time.Now().UTC(), expiration: expiration}
	c.mu.Unlock()
	return nil
}

// InsertMany implements Cache, inserting every item under a single
// lock so a concurrent reader never observes a partial batch.
func (c *InMemoryCache) InsertMany(ctx context.Context, items map[string][]byte, absoluteExpiration time.Time) error {
	if err := c.checkOpen("InsertMany"); err != nil {
		return err
	}
	expiration := absoluteExpiration
	if expiration.IsZero() {
		expiration = cachemodel.Never
	}
	now := time.Now().UTC()
	c.mu.Lock()
	for key, value := range items {
		c.entries[key] = memoryEntry{value: value, createdAt: now, expiration: expiration}
	}
	c.mu.Unlock()
	return nil
}

// Get implements Cache.
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := c.checkOpen("Get"); err != nil {
		return nil, false, err
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if entry.expired(time.Now().UTC()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// GetMany implements Cache, returning only present, non-expired
// entries and evicting any expired entries it encounters.
func (c *InMemoryCache) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := c.checkOpen("GetMany"); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	values := make(map[string][]byte, len(keys))
	var expired []string

	c.mu.RLock()
	for _, key := range keys {
		entry, ok := c.entries[key]
		if !ok {
			continue
		}
		if entry.expired(now) {
			expired = append(expired, key)
			continue
		}
		values[key] = entry.value
	}
	c.mu.RUnlock()

	if len(expired) > 0 {
		c.mu.Lock()
		for _, key := range expired {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}
	return values, nil
}

// GetCreatedAt implements Cache.
func (c *InMemoryCache) GetCreatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	if err := c.checkOpen("GetCreatedAt"); err != nil {
		return time.Time{}, false, err
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return time.Time{}, false, nil
	}
	if entry.expired(time.Now().UTC()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return time.Time{}, false, nil
	}
	return entry.createdAt, true, nil
}

// Invalidate implements Cache.
func (c *InMemoryCache) Invalidate(ctx context.Context, key string) error {
	if err := c.checkOpen("Invalidate"); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// InvalidateMany implements Cache.
func (c *InMemoryCache) InvalidateMany(ctx context.Context, keys []string) error {
	if err := c.checkOpen("InvalidateMany"); err != nil {
		return err
	}
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return nil
}

// InvalidateAll implements Cache.
func (c *InMemoryCache) InvalidateAll(ctx context.Context) error {
	if err := c.checkOpen("InvalidateAll"); err != nil {
		return err
	}
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// GetAllKeysByType implements TypedCache.
func (c *InMemoryCache) GetAllKeysByType(ctx context.Context, typeName string) ([]string, error) {
	if err := c.checkOpen("GetAllKeysByType"); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c.mu.RLock()
	defer c.mu.RUnlock()
	var keys []string
	for k, entry := range c.entries {
		if entry.typeName == typeName && !entry.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// InvalidateAllByType implements TypedCache.
func (c *InMemoryCache) InvalidateAllByType(ctx context.Context, typeName string) error {
	if err := c.checkOpen("InvalidateAllByType"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, entry := range c.entries {
		if entry.typeName == typeName {
			delete(c.entries, k)
		}
	}
	return nil
}

// GetAllKeys implements Cache.
func (c *InMemoryCache) GetAllKeys(ctx context.Context) ([]string, error) {
	if err := c.checkOpen("GetAllKeys"); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k, entry := range c.entries {
		if !entry.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Flush implements Cache. There is no background writer to wait on, so
// Flush only validates the cache is still open.
func (c *InMemoryCache) Flush(ctx context.Context) error {
	return c.checkOpen("Flush")
}

// Vacuum deletes every entry whose expiration has already passed.
// Unlike a persistent cache's VACUUM, this reclaims heap space
// immediately rather than deferring to SQLite's page reuse.
func (c *InMemoryCache) Vacuum(ctx context.Context) error {
	if err := c.checkOpen("Vacuum"); err != nil {
		return err
	}
	now := time.Now().UTC()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, k)
		}
	}
	return nil
}

// Close marks the cache disposed. Close is idempotent.
func (c *InMemoryCache) Close() error {
	c.disposed.Store(true)
	return nil
}
