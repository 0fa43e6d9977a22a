package cache

import (
	"context"
	"time"

	"github.com/akavache-go/akavache/internal/protect"
)

// EncryptedCache decorates another Cache, sealing every value with a
// Protector before it reaches the inner backend and opening it again on
// the way out. Keys and type names pass through unencrypted: only the
// payload is protected.
type EncryptedCache struct {
	inner     Cache
	protector *protect.Protector
}

// NewEncrypted wraps inner, encrypting values with protector.
func NewEncrypted(inner Cache, protector *protect.Protector) *EncryptedCache {
	return &EncryptedCache{inner: inner, protector: protector}
}

// Insert implements Cache.
func (c *EncryptedCache) Insert(ctx context.Context, key string, value []byte, absoluteExpiration time.Time) error {
	sealed, err := c.protector.Seal(value)
	if err != nil {
		return err
	}
	return c.inner.Insert(ctx, key, sealed, absoluteExpiration)
}

// InsertTyped seals value before delegating, when the inner cache
// supports typed inserts.
func (c *EncryptedCache) InsertTyped(ctx context.Context, key, typeName string, value []byte, absoluteExpiration time.Time) error {
	sealed, err := c.protector.Seal(value)
	if err != nil {
		return err
	}
	typed, ok := c.inner.(TypedCache)
	if !ok {
		return c.inner.Insert(ctx, key, sealed, absoluteExpiration)
	}
	return typed.InsertTyped(ctx, key, typeName, sealed, absoluteExpiration)
}

// InsertMany implements Cache, sealing every value before delegating
// the batch.
func (c *EncryptedCache) InsertMany(ctx context.Context, items map[string][]byte, absoluteExpiration time.Time) error {
	sealed := make(map[string][]byte, len(items))
	for key, value := range items {
		s, err := c.protector.Seal(value)
		if err != nil {
			return err
		}
		sealed[key] = s
	}
	return c.inner.InsertMany(ctx, sealed, absoluteExpiration)
}

// Get implements Cache, opening the sealed payload before returning it.
func (c *EncryptedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	sealed, ok, err := c.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	plain, err := c.protector.Open(sealed)
	if err != nil {
		return nil, false, err
	}
	return plain, true, nil
}

// GetMany implements Cache, opening each sealed payload the inner
// cache returns.
func (c *EncryptedCache) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	sealed, err := c.inner.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	plain := make(map[string][]byte, len(sealed))
	for key, value := range sealed {
		p, err := c.protector.Open(value)
		if err != nil {
			return nil, err
		}
		plain[key] = p
	}
	return plain, nil
}

// GetCreatedAt implements Cache. Creation time isn't sealed, so this
// passes straight through to the inner cache.
func (c *EncryptedCache) GetCreatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	return c.inner.GetCreatedAt(ctx, key)
}

// Invalidate implements Cache.
func (c *EncryptedCache) Invalidate(ctx context.Context, key string) error {
	return c.inner.Invalidate(ctx, key)
}

// InvalidateMany implements Cache.
func (c *EncryptedCache) InvalidateMany(ctx context.Context, keys []string) error {
	return c.inner.InvalidateMany(ctx, keys)
}

// InvalidateAll implements Cache.
func (c *EncryptedCache) InvalidateAll(ctx context.Context) error {
	return c.inner.InvalidateAll(ctx)
}

// GetAllKeysByType delegates when the inner cache tracks type names.
func (c *EncryptedCache) GetAllKeysByType(ctx context.Context, typeName string) ([]string, error) {
	typed, ok := c.inner.(TypedCache)
	if !ok {
		return nil, nil
	}
	return typed.GetAllKeysByType(ctx, typeName)
}

// InvalidateAllByType delegates when the inner cache tracks type names.
func (c *EncryptedCache) InvalidateAllByType(ctx context.Context, typeName string) error {
	typed, ok := c.inner.(TypedCache)
	if !ok {
		return nil
	}
	return typed.InvalidateAllByType(ctx, typeName)
}

// GetAllKeys implements Cache.
func (c *EncryptedCache) GetAllKeys(ctx context.Context) ([]string, error) {
	return c.inner.GetAllKeys(ctx)
}

// Flush implements Cache.
func (c *EncryptedCache) Flush(ctx context.Context) error {
	return c.inner.Flush(ctx)
}

// Close implements Cache.
func (c *EncryptedCache) Close() error {
	return c.inner.Close()
}
