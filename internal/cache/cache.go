// Package cache implements the blob-cache contract: persistent,
// in-memory, and encrypted-decorator backends sharing one interface, plus
// the typed-object helpers layered on top of it.
package cache

import (
	"context"
	"time"
)

// Cache is the contract every backend satisfies: byte payloads keyed
// by string, with an expiration and an optional logical type name used
// for typed-object bulk queries.
type Cache interface {
	// Insert stores value under key, expiring at absoluteExpiration. A
	// zero absoluteExpiration means "does not expire".
	Insert(ctx context.Context, key string, value []byte, absoluteExpiration time.Time) error

	// InsertMany stores every item in one atomic batch, expiring at
	// absoluteExpiration: either every item lands or the call fails and
	// none do.
	InsertMany(ctx context.Context, items map[string][]byte, absoluteExpiration time.Time) error

	// Get returns the value stored under key. The second return is
	// false if the key is absent or has expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// GetMany returns every present, non-expired value among keys.
	// Missing or expired keys are simply absent from the result; no
	// per-key error is raised.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// GetCreatedAt returns the instant key was last inserted. The
	// second return is false if the key does not exist; a missing key
	// is not an error.
	GetCreatedAt(ctx context.Context, key string) (time.Time, bool, error)

	// Invalidate removes key. Removing an absent key is not an error.
	Invalidate(ctx context.Context, key string) error

	// InvalidateMany removes every key in keys. Absent keys are not an
	// error.
	InvalidateMany(ctx context.Context, keys []string) error

	// InvalidateAll removes every key.
	InvalidateAll(ctx context.Context) error

	// GetAllKeys returns every live key in the cache.
	GetAllKeys(ctx context.Context) ([]string, error)

	// Flush blocks until every operation submitted before it has been
	// applied.
	Flush(ctx context.Context) error

	// Close releases resources the cache holds open. Subsequent calls
	// to any other method return ErrDisposed.
	Close() error
}

// TypedCache is satisfied by backends that also track a logical type
// name per key, letting typed-object bulk operations scope queries to
// instances of one Go type.
type TypedCache interface {
	Cache

	// InsertTyped stores value under key tagged with typeName.
	InsertTyped(ctx context.Context, key, typeName string, value []byte, absoluteExpiration time.Time) error

	// GetAllKeysByType returns every live key tagged with typeName.
	GetAllKeysByType(ctx context.Context, typeName string) ([]string, error)

	// InvalidateAllByType removes every key tagged with typeName.
	InvalidateAllByType(ctx context.Context, typeName string) error
}
