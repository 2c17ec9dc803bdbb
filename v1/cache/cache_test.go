package cache

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryGetSetInvalidate(t *testing.T) {
	c := NewInMemory[string]()
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "foo", "bar", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := c.Get(ctx, "foo"); err != nil || !ok || v != "bar" {
		t.Fatalf("Get: expected bar, got %v ok %v err %v", v, ok, err)
	}
	if err := c.Invalidate(ctx, "foo"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "foo"); ok {
		t.Fatal("expected miss after invalidate")
	}
	m := c.Metrics()
	if m.Hits != 1 || m.Misses != 1 || m.Size != 0 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestInMemoryExpiration(t *testing.T) {
	c := NewInMemory[string](WithSweepInterval[string](5 * time.Millisecond))
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "foo", "bar", 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if c.Metrics().Size != 0 {
		t.Fatal("sweeper should have removed the expired item")
	}
	if _, ok, _ := c.Get(ctx, "foo"); ok {
		t.Fatal("expected key to expire")
	}
}

func TestInMemoryMaxEntriesEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewInMemory[int](WithMaxEntries[int](2), WithSweepInterval[int](0))
	defer c.Close()
	ctx := context.Background()

	_ = c.Set(ctx, "a", 1, 0)
	_ = c.Set(ctx, "b", 2, 0)
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("expected a present")
	}
	_ = c.Set(ctx, "c", 3, 0)
	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("a was used recently and should remain")
	}
}

func TestInMemoryCloseIsIdempotent(t *testing.T) {
	c := NewInMemory[string]()
	c.Close()
	c.Close()
}
