package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var delScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

const redisCleanupTimeout = 5 * time.Second

// Redis implements Coordinator on top of SET NX with an expiry. Every worker
// talking to the same Redis shares the same leases.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures a Redis coordinator.
type RedisOption func(*Redis)

// WithKeyPrefix namespaces every lease key stored in Redis.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis returns a new Redis coordinator using the provided client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TryAcquire implements Coordinator.TryAcquire. A non-positive ttl never
// expires.
func (r *Redis) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, ttl).Result()
	if err != nil {
		if ctx.Err() != nil {
			// The SET may have reached Redis before the caller gave up.
			r.cleanup(key, token)
		}
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Lease{Key: key, Token: token, TTL: ttl, AcquiredAt: time.Now()}, true, nil
}

// Release implements Coordinator.Release.
func (r *Redis) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	n, err := delScript.Run(ctx, r.client, []string{r.prefix + lease.Key}, lease.Token).Int64()
	if errors.Is(err, redis.Nil) {
		err = nil
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (r *Redis) cleanup(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisCleanupTimeout)
	defer cancel()
	_ = delScript.Run(ctx, r.client, []string{r.prefix + key}, token).Err()
}
