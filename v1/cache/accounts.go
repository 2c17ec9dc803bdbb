package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mirkobrombin/go-fedit/v1/adapter"
	"github.com/mirkobrombin/go-fedit/v1/model"
)

const defaultAccountTTL = time.Minute

// Accounts caches account lookups in front of an AccountSource. Concurrent
// misses for the same account share a single lookup.
type Accounts struct {
	src   adapter.AccountSource
	cache Cache[model.Account]
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// AccountsOption configures Accounts.
type AccountsOption func(*Accounts)

// WithAccountTTL sets how long a looked up account is reused.
func WithAccountTTL(d time.Duration) AccountsOption {
	return func(a *Accounts) {
		a.ttl = d
	}
}

// WithAccountsLogger sets the logger used to report cache failures.
func WithAccountsLogger(l *slog.Logger) AccountsOption {
	return func(a *Accounts) {
		a.logger = l
	}
}

// NewAccounts wraps src with c.
func NewAccounts(src adapter.AccountSource, c Cache[model.Account], opts ...AccountsOption) *Accounts {
	a := &Accounts{src: src, cache: c, ttl: defaultAccountTTL, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Account implements adapter.AccountSource.
func (a *Accounts) Account(ctx context.Context, id int64) (model.Account, error) {
	key := accountKey(id)
	if acc, ok, err := a.cache.Get(ctx, key); err == nil && ok {
		return acc, nil
	} else if err != nil {
		a.logger.Warn("fedit: account cache get failed", "key", key, "error", err)
	}
	v, err, _ := a.group.Do(key, func() (any, error) {
		acc, err := a.src.Account(ctx, id)
		if err != nil {
			return model.Account{}, err
		}
		if err := a.cache.Set(ctx, key, acc, a.ttl); err != nil {
			a.logger.Warn("fedit: account cache set failed", "key", key, "error", err)
		}
		return acc, nil
	})
	if err != nil {
		return model.Account{}, err
	}
	return v.(model.Account), nil
}

// Invalidate drops the cached copy of an account, for example after its
// sensitized flag changed.
func (a *Accounts) Invalidate(ctx context.Context, id int64) error {
	return a.cache.Invalidate(ctx, accountKey(id))
}

func accountKey(id int64) string {
	return "account:" + strconv.FormatInt(id, 10)
}
