package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestPersistent(t *testing.T) *PersistentCache {
	t.Helper()
	c, err := NewPersistent(filepath.Join(t.TempDir(), "cache.db"), 8)
	if err != nil {
		t.Fatalf("NewPersistent failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPersistentInsertAndGet(t *testing.T) {
	c := newTestPersistent(t)
	ctx := context.Background()

	if err := c.Insert(ctx, "key", []byte("value"), time.Time{}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	got, ok, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || string(got) != "value" {
		t.Errorf("Get() = (%q, %v), want (value, true)", got, ok)
	}
}

func TestPersistentExpiredEntryIsMissing(t *testing.T) {
	c := newTestPersistent(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	if err := c.Insert(ctx, "stale", []byte("v"), past); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	_, ok, err := c.Get(ctx, "stale")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected expired entry to be reported missing")
	}
}

func TestPersistentInsertManyAndGetMany(t *testing.T) {
	c := newTestPersistent(t)
	ctx := context.Background()

	items := map[string][]byte{"a": []byte("1"), "b": []byte("2")}
	if err := c.InsertMany(ctx, items, time.Time{}); err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}

	got, err := c.GetMany(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("GetMany failed: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("GetMany() = %v, want {a:1 b:2}", got)
	}
	if _, ok := got["c"]; ok {
		t.Error("expected absent key c to be missing from GetMany result")
	}
}

func TestPersistentGetManyEvictsExpired(t *testing.T) {
	c := newTestPersistent(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	if err := c.InsertMany(ctx, map[string][]byte{"stale": []byte("v")}, past); err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	got, err := c.GetMany(ctx, []string{"stale"})
	if err != nil {
		t.Fatalf("GetMany failed: %v", err)
	}
	if _, ok := got["stale"]; ok {
		t.Error("expected expired entry to be absent from GetMany result")
	}
	keys, err := c.GetAllKeys(ctx)
	if err != nil {
		t.Fatalf("GetAllKeys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected GetMany to evict the expired row, got keys %v", keys)
	}
}

func TestPersistentInvalidateMany(t *testing.T) {
	c := newTestPersistent(t)
	ctx := context.Background()

	if err := c.InsertMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, time.Time{}); err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	if err := c.InvalidateMany(ctx, []string{"a", "missing"}); err != nil {
		t.Fatalf("InvalidateMany failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("expected a to be invalidated")
	}
	if _, ok, _ := c.Get(ctx, "b"); !ok {
		t.Error("expected b to survive")
	}
}

func TestPersistentGetCreatedAt(t *testing.T) {
	c := newTestPersistent(t)
	ctx := context.Background()

	before := time.Now().UTC()
	if err := c.Insert(ctx, "a", []byte("v"), time.Time{}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	createdAt, ok, err := c.GetCreatedAt(ctx, "a")
	if err != nil {
		t.Fatalf("GetCreatedAt failed: %v", err)
	}
	if !ok {
		t.Fatal("expected GetCreatedAt to find the key")
	}
	if createdAt.Before(before.Add(-time.Second)) || createdAt.After(time.Now().UTC().Add(time.Second)) {
		t.Errorf("GetCreatedAt() = %v, want within 1s of insert", createdAt)
	}

	_, ok, err = c.GetCreatedAt(ctx, "missing")
	if err != nil {
		t.Fatalf("GetCreatedAt on missing key failed: %v", err)
	}
	if ok {
		t.Error("expected GetCreatedAt on missing key to report absent")
	}
}

func TestPersistentTypedQueries(t *testing.T) {
	c := newTestPersistent(t)
	ctx := context.Background()

	if err := c.InsertTyped(ctx, "w1", "widget", []byte("a"), time.Time{}); err != nil {
		t.Fatalf("InsertTyped failed: %v", err)
	}
	if err := c.InsertTyped(ctx, "w2", "widget", []byte("b"), time.Time{}); err != nil {
		t.Fatalf("InsertTyped failed: %v", err)
	}
	if err := c.Insert(ctx, "plain", []byte("c"), time.Time{}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	keys, err := c.GetAllKeysByType(ctx, "widget")
	if err != nil {
		t.Fatalf("GetAllKeysByType failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("GetAllKeysByType() = %v, want 2 keys", keys)
	}

	if err := c.InvalidateAllByType(ctx, "widget"); err != nil {
		t.Fatalf("InvalidateAllByType failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "w1"); ok {
		t.Error("expected typed entry to be invalidated")
	}
	if _, ok, _ := c.Get(ctx, "plain"); !ok {
		t.Error("expected untyped entry to survive")
	}
}

func TestPersistentCloseDisposesSubsequentCalls(t *testing.T) {
	c := newTestPersistent(t)
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if _, _, err := c.Get(context.Background(), "key"); err == nil {
		t.Error("expected Get after Close to fail")
	}
}

func TestPersistentSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c1, err := NewPersistent(path, 8)
	if err != nil {
		t.Fatalf("NewPersistent failed: %v", err)
	}
	if err := c1.Insert(context.Background(), "durable", []byte("v"), time.Time{}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := c1.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	c1.Close()

	c2, err := NewPersistent(path, 8)
	if err != nil {
		t.Fatalf("reopen NewPersistent failed: %v", err)
	}
	defer c2.Close()

	got, ok, err := c2.Get(context.Background(), "durable")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || string(got) != "v" {
		t.Errorf("Get() after reopen = (%q, %v), want (v, true)", got, ok)
	}
}
