package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mirkobrombin/go-fedit/v1/adapter"
	"github.com/mirkobrombin/go-fedit/v1/model"
)

type countingSource struct {
	calls atomic.Int32
	delay time.Duration
	acc   model.Account
	err   error
}

func (s *countingSource) Account(ctx context.Context, id int64) (model.Account, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	if s.err != nil {
		return model.Account{}, s.err
	}
	return s.acc, nil
}

func TestAccountsCachesLookups(t *testing.T) {
	src := &countingSource{acc: model.Account{ID: 1, Sensitized: true}}
	c := NewInMemory[model.Account]()
	defer c.Close()
	a := NewAccounts(src, c)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		acc, err := a.Account(ctx, 1)
		if err != nil {
			t.Fatalf("Account: %v", err)
		}
		if !acc.Sensitized {
			t.Fatal("expected sensitized account")
		}
	}
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("expected 1 lookup, got %d", got)
	}

	if err := a.Invalidate(ctx, 1); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := a.Account(ctx, 1); err != nil {
		t.Fatalf("Account: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("expected lookup after invalidate, got %d", got)
	}
}

func TestAccountsSharesConcurrentMisses(t *testing.T) {
	src := &countingSource{acc: model.Account{ID: 1}, delay: 20 * time.Millisecond}
	c := NewInMemory[model.Account]()
	defer c.Close()
	a := NewAccounts(src, c)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Account(context.Background(), 1); err != nil {
				t.Errorf("Account: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("expected a single shared lookup, got %d", got)
	}
}

func TestAccountsErrorsAreNotCached(t *testing.T) {
	src := &countingSource{err: adapter.ErrNotFound}
	c := NewInMemory[model.Account]()
	defer c.Close()
	a := NewAccounts(src, c)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := a.Account(ctx, 5); !errors.Is(err, adapter.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("errors must not be cached, got %d lookups", got)
	}
}

func TestAccountsWithRistretto(t *testing.T) {
	src := &countingSource{acc: model.Account{ID: 3, Username: "carol"}}
	rc, err := NewRistretto[model.Account]()
	if err != nil {
		t.Fatalf("NewRistretto: %v", err)
	}
	defer rc.Close()
	a := NewAccounts(src, rc, WithAccountTTL(time.Minute))
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		acc, err := a.Account(ctx, 3)
		if err != nil || acc.Username != "carol" {
			t.Fatalf("Account: %+v err %v", acc, err)
		}
	}
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (model.Account, bool, error) {
	return model.Account{}, false, errors.New("cache down")
}

func (brokenCache) Set(context.Context, string, model.Account, time.Duration) error {
	return errors.New("cache down")
}

func (brokenCache) Invalidate(context.Context, string) error { return nil }

func TestAccountsLogsCacheFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	src := &countingSource{acc: model.Account{ID: 4}}
	a := NewAccounts(src, brokenCache{}, WithAccountsLogger(logger))

	acc, err := a.Account(context.Background(), 4)
	if err != nil || acc.ID != 4 {
		t.Fatalf("expected lookup to bypass the cache, got %+v err %v", acc, err)
	}
	out := buf.String()
	if !strings.Contains(out, "account cache get failed") || !strings.Contains(out, "account cache set failed") {
		t.Fatalf("expected cache failures on the configured logger, got %q", out)
	}
}
