package lock

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is how long an edit lease lives before it is reclaimed.
const DefaultTTL = 15 * time.Minute

var (
	// ErrNotAcquired is returned by Gate.WithLock when another holder owns the key.
	ErrNotAcquired = errors.New("fedit: lease held by another worker")
	// ErrInvalidTTL is returned when a non-positive TTL is requested.
	ErrInvalidTTL = errors.New("fedit: lease ttl must be positive")
	// ErrLeaseLost is returned by Release when the lease expired or was
	// taken over before being released.
	ErrLeaseLost = errors.New("fedit: lease expired before release")
)

// Lease is a held lease. Token proves ownership on release.
type Lease struct {
	Key        string
	Token      string
	TTL        time.Duration
	AcquiredAt time.Time
}

// Coordinator grants and releases leases. Implementations must make
// TryAcquire atomic: two callers can never hold the same key at once.
type Coordinator interface {
	// TryAcquire makes a single attempt to take key for ttl. It returns false
	// without error when the key is already held.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error)
	// Release frees the lease if it is still owned by the caller.
	Release(ctx context.Context, lease *Lease) error
}
