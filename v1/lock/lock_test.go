package lock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryTryAcquireRelease(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	lease, ok, err := l.TryAcquire(ctx, "k", time.Second)
	if err != nil || !ok {
		t.Fatalf("tryacquire: %v ok %v", err, ok)
	}
	if _, ok, err := l.TryAcquire(ctx, "k", time.Second); err != nil || ok {
		t.Fatalf("expected lease held, got ok %v err %v", ok, err)
	}
	if err := l.Release(ctx, lease); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, err := l.TryAcquire(ctx, "k", time.Second); err != nil || !ok {
		t.Fatalf("expected lease re-acquired, ok %v err %v", ok, err)
	}
}

func TestInMemoryKeysAreIndependent(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	if _, ok, _ := l.TryAcquire(ctx, "a", time.Second); !ok {
		t.Fatal("expected a acquired")
	}
	if _, ok, _ := l.TryAcquire(ctx, "b", time.Second); !ok {
		t.Fatal("expected b acquired while a is held")
	}
}

func TestInMemoryLeaseExpires(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	stale, ok, err := l.TryAcquire(ctx, "k", 10*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("tryacquire: %v ok %v", err, ok)
	}
	time.Sleep(30 * time.Millisecond)
	if l.Held("k") {
		t.Fatal("lease should have expired")
	}
	fresh, ok, err := l.TryAcquire(ctx, "k", time.Second)
	if err != nil || !ok {
		t.Fatalf("lease should be reclaimable, ok %v err %v", ok, err)
	}
	if err := l.Release(ctx, stale); !errors.Is(err, ErrLeaseLost) {
		t.Fatalf("stale release should report ErrLeaseLost, got %v", err)
	}
	if !l.Held("k") {
		t.Fatal("stale release must not free the new holder's lease")
	}
	if err := l.Release(ctx, fresh); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestInMemoryCancelledContext(t *testing.T) {
	l := NewInMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok, err := l.TryAcquire(ctx, "k", time.Second); err == nil || ok {
		t.Fatalf("expected context error, ok %v err %v", ok, err)
	}
	if l.Held("k") {
		t.Fatal("cancelled attempt must not hold the lease")
	}
}

func TestInMemoryReleaseNil(t *testing.T) {
	if err := NewInMemory().Release(context.Background(), nil); err != nil {
		t.Fatalf("release nil: %v", err)
	}
}
