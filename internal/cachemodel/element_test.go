package cachemodel

import (
	"testing"
	"time"
)

func TestTickRoundTrip(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 30, 0, 0, time.UTC)
	ticks := ToTicks(now)
	got := FromTicks(ticks)
	if !got.Equal(now) {
		t.Errorf("FromTicks(ToTicks(t)) = %v, want %v", got, now)
	}
}

func TestToTicksNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("TEST", 3600)
	local := time.Date(2026, 7, 31, 13, 30, 0, 0, loc)
	utc := local.UTC()
	if ToTicks(local) != ToTicks(utc) {
		t.Error("ToTicks should normalize non-UTC times before converting")
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	el := CacheElement{Expiration: now.Add(-time.Second)}
	if !el.Expired(now) {
		t.Error("expected element with past expiration to be expired")
	}

	el2 := CacheElement{Expiration: Never}
	if el2.Expired(now) {
		t.Error("Never sentinel should never be expired")
	}
}
