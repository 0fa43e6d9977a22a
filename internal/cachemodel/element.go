// Package cachemodel defines the persistence record every cache backend
// stores and reads: the CacheElement, plus the on-disk tick encoding
// that keeps timestamps exact regardless of SQLite driver defaults.
package cachemodel

import "time"

// ticksPerSecond matches the .NET DateTime.Ticks unit (100-nanosecond
// intervals) the original on-disk format used, so a migrated or
// hand-inspected database keeps the same tick arithmetic.
const ticksPerSecond = 10_000_000

// epoch is tick zero: 0001-01-01T00:00:00Z.
var epoch = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)

// Never is the sentinel expiration meaning "does not expire".
var Never = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// ToTicks converts a UTC instant to a 100-nanosecond tick count since
// the epoch, for exact storage in an INTEGER column.
func ToTicks(t time.Time) int64 {
	t = t.UTC()
	return (t.Unix()-epoch.Unix())*ticksPerSecond + int64(t.Nanosecond())/100
}

// FromTicks converts a tick count back to a UTC time.Time.
func FromTicks(ticks int64) time.Time {
	return time.Unix(epoch.Unix()+ticks/ticksPerSecond, (ticks%ticksPerSecond)*100).UTC()
}

// CacheElement is the persistence record: a key, optional
// logical type name, opaque payload, and creation/expiration instants.
type CacheElement struct {
	Key        string
	TypeName   *string
	Value      []byte
	CreatedAt  time.Time
	Expiration time.Time
}

// Expired reports whether the element's expiration has passed as of now.
func (e CacheElement) Expired(now time.Time) bool {
	return now.After(e.Expiration)
}

// SchemaInfo is the single-row table recording the current schema
// version.
type SchemaInfo struct {
	Version int
}

// CurrentSchemaVersion is the schema version this build writes.
const CurrentSchemaVersion = 2
