package cache

import (
	"context"
	"fmt"
	"time"

	akerrors "github.com/akavache-go/akavache/internal/errors"
	"github.com/akavache-go/akavache/internal/serializer"
)

// typeNameOf derives the logical type name typed-object operations tag
// entries with. Using the Go type name directly (rather than a
// registered string) keeps callers from needing a separate
// registration step, at the cost of breaking the tag if a type is
// renamed; GetAllObjects/InvalidateAllObjects would then need the old
// name, which callers can still pass directly to the TypedCache methods.
func typeNameOf[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// InsertObject serializes value and stores it under key, tagged with
// T's type name so GetAllObjects[T] and InvalidateAllObjects[T] can
// find it later.
func InsertObject[T any](ctx context.Context, c TypedCache, s *serializer.Serializer, key string, value T, absoluteExpiration time.Time) error {
	payload, err := serializer.Encode(value)
	if err != nil {
		return err
	}
	return c.InsertTyped(ctx, key, typeNameOf[T](), payload, absoluteExpiration)
}

// GetObject retrieves and deserializes the value stored under key.
func GetObject[T any](ctx context.Context, c Cache, s *serializer.Serializer, key string) (T, error) {
	var zero T
	payload, ok, err := c.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, akerrors.NotFound(key)
	}
	return serializer.Decode[T](s, payload)
}

// GetAllObjects retrieves and deserializes every value tagged with T's
// type name.
func GetAllObjects[T any](ctx context.Context, c TypedCache, s *serializer.Serializer) ([]T, error) {
	keys, err := c.GetAllKeysByType(ctx, typeNameOf[T]())
	if err != nil {
		return nil, err
	}
	results := make([]T, 0, len(keys))
	for _, key := range keys {
		payload, ok, err := c.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		value, err := serializer.Decode[T](s, payload)
		if err != nil {
			return nil, err
		}
		results = append(results, value)
	}
	return results, nil
}

// InvalidateAllObjects removes every value tagged with T's type name.
func InvalidateAllObjects[T any](ctx context.Context, c TypedCache) error {
	return c.InvalidateAllByType(ctx, typeNameOf[T]())
}
