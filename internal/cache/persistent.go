package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akavache-go/akavache/internal/cachemodel"
	akerrors "github.com/akavache-go/akavache/internal/errors"
	"github.com/akavache-go/akavache/internal/queue"
	"github.com/akavache-go/akavache/internal/schema"
)

// PersistentCache is the SQLite-backed cache: every operation is
// serialized through a single Queue worker, so callers never race each
// other against the database file.
type PersistentCache struct {
	mgr   *schema.Manager
	queue *queue.Queue

	disposed atomic.Bool
}

// NewPersistent opens (creating and migrating as needed) the SQLite
// database at path and starts its operation queue. maxBatch bounds how
// many operations the queue worker drains into a single batch; 0 uses
// the queue package's default.
func NewPersistent(path string, maxBatch int) (*PersistentCache, error) {
	mgr, err := schema.Open(path)
	if err != nil {
		return nil, err
	}
	q := queue.New(mgr, queue.Options{MaxBatch: maxBatch})
	return &PersistentCache{mgr: mgr, queue: q}, nil
}

func (c *PersistentCache) checkOpen(op string) error {
	if c.disposed.Load() {
		return akerrors.Disposed(op)
	}
	return nil
}

// Insert implements Cache.
func (c *PersistentCache) Insert(ctx context.Context, key string, value []byte, absoluteExpiration time.Time) error {
	if err := c.checkOpen("Insert"); err != nil {
		return err
	}
	return c.queue.Insert(ctx, c.element(key, nil, value, absoluteExpiration))
}

// InsertTyped implements TypedCache.
func (c *PersistentCache) InsertTyped(ctx context.Context, key, typeName string, value []byte, absoluteExpiration time.Time) error {
	if err := c.checkOpen("InsertTyped"); err != nil {
		return err
	}
	return c.queue.Insert(ctx, c.element(key, &typeName, value, absoluteExpiration))
}

func (c *PersistentCache) element(key string, typeName *string, value []byte, absoluteExpiration time.Time) cachemodel.CacheElement {
	expiration := cachemodel.Never
	if !absoluteExpiration.IsZero() {
		expiration = absoluteExpiration
	}
	return cachemodel.CacheElement{
		Key:        key,
		TypeName:   typeName,
		Value:      value,
		CreatedAt:  time.Now().UTC(),
		Expiration: expiration,
	}
}

// InsertMany implements Cache, writing every item as a single atomic
// transaction via the queue.
func (c *PersistentCache) InsertMany(ctx context.Context, items map[string][]byte, absoluteExpiration time.Time) error {
	if err := c.checkOpen("InsertMany"); err != nil {
		return err
	}
	elements := make([]cachemodel.CacheElement, 0, len(items))
	for key, value := range items {
		elements = append(elements, c.element(key, nil, value, absoluteExpiration))
	}
	return c.queue.InsertMany(ctx, elements)
}

// Get implements Cache.
func (c *PersistentCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := c.checkOpen("Get"); err != nil {
		return nil, false, err
	}
	el, ok, err := c.queue.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if el.Expired(time.Now().UTC()) {
		_ = c.queue.Invalidate(ctx, key)
		return nil, false, nil
	}
	return el.Value, true, nil
}

// GetMany implements Cache, returning only present, non-expired
// entries. The queue evicts any expired rows it encounters along the
// way.
func (c *PersistentCache) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := c.checkOpen("GetMany"); err != nil {
		return nil, err
	}
	elements, err := c.queue.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	values := make(map[string][]byte, len(elements))
	for key, el := range elements {
		values[key] = el.Value
	}
	return values, nil
}

// GetCreatedAt implements Cache.
func (c *PersistentCache) GetCreatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	if err := c.checkOpen("GetCreatedAt"); err != nil {
		return time.Time{}, false, err
	}
	el, ok, err := c.queue.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	if el.Expired(time.Now().UTC()) {
		_ = c.queue.Invalidate(ctx, key)
		return time.Time{}, false, nil
	}
	return el.CreatedAt, true, nil
}

// Invalidate implements Cache.
func (c *PersistentCache) Invalidate(ctx context.Context, key string) error {
	if err := c.checkOpen("Invalidate"); err != nil {
		return err
	}
	return c.queue.Invalidate(ctx, key)
}

// InvalidateMany implements Cache.
func (c *PersistentCache) InvalidateMany(ctx context.Context, keys []string) error {
	if err := c.checkOpen("InvalidateMany"); err != nil {
		return err
	}
	return c.queue.InvalidateMany(ctx, keys)
}

// InvalidateAll implements Cache.
func (c *PersistentCache) InvalidateAll(ctx context.Context) error {
	if err := c.checkOpen("InvalidateAll"); err != nil {
		return err
	}
	return c.queue.InvalidateAll(ctx)
}

// GetAllKeysByType implements TypedCache.
func (c *PersistentCache) GetAllKeysByType(ctx context.Context, typeName string) ([]string, error) {
	if err := c.checkOpen("GetAllKeysByType"); err != nil {
		return nil, err
	}
	return c.queue.AllKeys(ctx, typeName)
}

// InvalidateAllByType implements TypedCache.
func (c *PersistentCache) InvalidateAllByType(ctx context.Context, typeName string) error {
	if err := c.checkOpen("InvalidateAllByType"); err != nil {
		return err
	}
	return c.queue.InvalidateByType(ctx, typeName)
}

// GetAllKeys implements Cache.
func (c *PersistentCache) GetAllKeys(ctx context.Context) ([]string, error) {
	if err := c.checkOpen("GetAllKeys"); err != nil {
		return nil, err
	}
	return c.queue.AllKeys(ctx, "")
}

// Flush implements Cache.
func (c *PersistentCache) Flush(ctx context.Context) error {
	if err := c.checkOpen("Flush"); err != nil {
		return err
	}
	return c.queue.Flush(ctx)
}

// Vacuum reclaims space freed by invalidated rows, ordered after every
// write already queued.
func (c *PersistentCache) Vacuum(ctx context.Context) error {
	if err := c.checkOpen("Vacuum"); err != nil {
		return err
	}
	return c.queue.Vacuum(ctx)
}

// Close stops the operation queue and closes the database handle.
// Close is idempotent.
func (c *PersistentCache) Close() error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}
	c.queue.Close()
	return c.mgr.Close()
}
