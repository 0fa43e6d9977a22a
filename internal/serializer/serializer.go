// Package serializer converts typed values to and from the
// self-describing byte payload the cache contract's typed-object
// operations store.
package serializer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/akavache-go/akavache/internal/config"
	akerrors "github.com/akavache-go/akavache/internal/errors"
)

// wrapper permits round-tripping primitive and nullable values that a
// bare JSON decoder can't represent at the document root (a lone `42`
// or `null` is valid JSON but an awkward root for some decoders, and it
// gives legacy/non-wrapped payloads a distinct shape to fall back from).
type wrapper[T any] struct {
	Value T `json:"Value"`
}

// Settings configures encode/decode behavior. The zero value is the
// default: no forced time kind, standard encoding/json marshaling.
type Settings struct {
	// ForcedKind coerces any time.Time value decoded through Decode to
	// this location. Unset (config.KindUnset) leaves it alone.
	ForcedKind config.DateTimeKind

	// Logger receives a warning when Decode falls back to the
	// unwrapped legacy shape. Defaults to slog.Default() if nil.
	Logger *slog.Logger
}

// Serializer encodes/decodes typed values for the typed-object cache
// operations (InsertObject/GetObject/GetAllObjects).
type Serializer struct {
	settings Settings
}

// New creates a Serializer with the given settings.
func New(settings Settings) *Serializer {
	if settings.Logger == nil {
		settings.Logger = slog.Default()
	}
	return &Serializer{settings: settings}
}

// Encode marshals value wrapped in {"Value": value}.
func Encode(value any) ([]byte, error) {
	b, err := json.Marshal(wrapper[any]{Value: value})
	if err != nil {
		return nil, akerrors.Serialization(err)
	}
	return b, nil
}

// Decode unmarshals payload into a T. It first tries the wrapped
// {"Value": ...} shape; on failure it falls back to decoding payload
// directly as a T, which handles entries written before the wrapper was
// introduced, logging the fallback at warning level. If T is time.Time
// and a ForcedKind is configured, the result is normalized to that
// location.
func Decode[T any](s *Serializer, payload []byte) (T, error) {
	var zero T

	var w wrapper[json.RawMessage]
	if err := json.Unmarshal(payload, &w); err == nil && w.Value != nil {
		var v T
		if err := json.Unmarshal(w.Value, &v); err == nil {
			return forceKind(s, v), nil
		}
	}

	var legacy T
	if err := json.Unmarshal(payload, &legacy); err != nil {
		return zero, akerrors.Serialization(err)
	}
	s.settings.Logger.Warn("decoded legacy unwrapped cache payload", "type", fmt.Sprintf("%T", legacy))
	return forceKind(s, legacy), nil
}

// forceKind applies ForcedKind when T is time.Time; otherwise it is a
// no-op passthrough. Go generics have no way to constrain T to "either
// anything, or specifically time.Time", so the check goes through a
// type assertion on the boxed value.
func forceKind[T any](s *Serializer, value T) T {
	loc := s.settings.ForcedKind.Location()
	if loc == nil {
		return value
	}
	if tv, ok := any(value).(time.Time); ok {
		if converted, ok := any(tv.In(loc)).(T); ok {
			return converted
		}
	}
	return value
}
