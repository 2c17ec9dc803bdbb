package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryLease struct {
	token string
	timer *time.Timer
}

// InMemory implements Coordinator using local memory.
type InMemory struct {
	mu    sync.Mutex
	locks map[string]*memoryLease
}

// NewInMemory returns a new in-memory coordinator.
func NewInMemory() *InMemory {
	return &InMemory{locks: make(map[string]*memoryLease)}
}

// TryAcquire implements Coordinator.TryAcquire. A non-positive ttl never
// expires.
func (l *InMemory) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.locks[key]; ok {
		return nil, false, nil
	}
	token := uuid.NewString()
	st := &memoryLease{token: token}
	if ttl > 0 {
		st.timer = time.AfterFunc(ttl, func() {
			l.expire(key, token)
		})
	}
	l.locks[key] = st
	return &Lease{Key: key, Token: token, TTL: ttl, AcquiredAt: time.Now()}, true, nil
}

func (l *InMemory) expire(key, token string) {
	l.mu.Lock()
	if st, ok := l.locks[key]; ok && st.token == token {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// Release implements Coordinator.Release.
func (l *InMemory) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.locks[lease.Key]
	if !ok || st.token != lease.Token {
		return ErrLeaseLost
	}
	if st.timer != nil {
		st.timer.Stop()
	}
	delete(l.locks, lease.Key)
	return nil
}

// Held reports whether key is currently leased.
func (l *InMemory) Held(key string) bool {
	l.mu.Lock()
	_, ok := l.locks[key]
	l.mu.Unlock()
	return ok
}
