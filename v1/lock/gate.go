package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mirkobrombin/go-fedit/v1/metrics"
)

const defaultReleaseTimeout = 5 * time.Second

// Gate runs work under a lease taken with a single attempt.
type Gate struct {
	c              Coordinator
	logger         *slog.Logger
	releaseTimeout time.Duration
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLogger sets the logger used to report release failures.
func WithLogger(l *slog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = l
	}
}

// WithReleaseTimeout bounds the release call made after the work returns.
func WithReleaseTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.releaseTimeout = d
		}
	}
}

// NewGate returns a Gate backed by c.
func NewGate(c Coordinator, opts ...GateOption) *Gate {
	g := &Gate{
		c:              c,
		logger:         slog.Default(),
		releaseTimeout: defaultReleaseTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithLock takes key for at most ttl, runs fn once and releases the lease.
//
// If key is held elsewhere fn is not called and ErrNotAcquired is returned.
// There is no retry. The release runs on every exit path, including a panic
// in fn and cancellation of ctx, using a context detached from ctx. A failed
// release is logged and does not change the result of fn: the work already
// happened and the lease will expire on its own.
func (g *Gate) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	lease, ok, err := g.c.TryAcquire(ctx, key, ttl)
	if err != nil {
		metrics.LockCounter.WithLabelValues("error").Inc()
		return fmt.Errorf("fedit: acquire lease %q: %w", key, err)
	}
	if !ok {
		metrics.LockCounter.WithLabelValues("contended").Inc()
		g.logger.Debug("fedit: lease contended", "key", key)
		return ErrNotAcquired
	}
	metrics.LockCounter.WithLabelValues("acquired").Inc()
	defer g.release(ctx, lease)
	return fn(ctx)
}

func (g *Gate) release(ctx context.Context, lease *Lease) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.releaseTimeout)
	defer cancel()
	err := g.c.Release(rctx, lease)
	metrics.LockHold.Observe(time.Since(lease.AcquiredAt).Seconds())
	if err != nil {
		metrics.ReleaseErrorCounter.Inc()
		g.logger.Warn("fedit: lease release failed", "key", lease.Key, "error", err)
	}
}
