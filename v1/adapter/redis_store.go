package adapter

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	fediterrors "github.com/mirkobrombin/go-fedit/v1/errors"
	"github.com/mirkobrombin/go-fedit/v1/model"
)

const defaultRedisOpTimeout = 5 * time.Second

// RedisStore implements Store keeping statuses and accounts as JSON values
// in Redis. Transactions commit with WATCH/MULTI/EXEC.
type RedisStore struct {
	client  redis.UniversalClient
	timeout time.Duration
	prefix  string
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisStoreOptions)

type redisStoreOptions struct {
	timeout time.Duration
	prefix  string
}

// WithTimeout sets the operation timeout for Redis calls.
func WithTimeout(d time.Duration) RedisOption {
	return func(o *redisStoreOptions) {
		o.timeout = d
	}
}

// WithRedisPrefix namespaces the stored keys. Defaults to "fedit:".
func WithRedisPrefix(p string) RedisOption {
	return func(o *redisStoreOptions) {
		o.prefix = p
	}
}

// NewRedisStore returns a new RedisStore using the provided Redis client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	o := redisStoreOptions{timeout: defaultRedisOpTimeout, prefix: "fedit:"}
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{client: client, timeout: o.timeout, prefix: o.prefix}
}

func (s *RedisStore) statusKey(uri string) string {
	return s.prefix + "status:" + uri
}

func (s *RedisStore) accountKey(id int64) string {
	return s.prefix + "account:" + strconv.FormatInt(id, 10)
}

// PutStatus stores st, replacing any status with the same URI.
func (s *RedisStore) PutStatus(ctx context.Context, st model.Status) error {
	return s.put(ctx, s.statusKey(st.URI), st)
}

// PutAccount stores a, replacing any account with the same ID.
func (s *RedisStore) PutAccount(ctx context.Context, a model.Account) error {
	return s.put(ctx, s.accountKey(a.ID), a)
}

func (s *RedisStore) put(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return mapRedisErr(err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return mapRedisErr(s.client.Set(cctx, key, data, 0).Err())
}

// Status implements Store.Status.
func (s *RedisStore) Status(ctx context.Context, uri string) (model.Status, error) {
	var st model.Status
	err := s.get(ctx, s.client, s.statusKey(uri), &st)
	return st, err
}

// Account implements AccountSource.Account.
func (s *RedisStore) Account(ctx context.Context, id int64) (model.Account, error) {
	var a model.Account
	err := s.get(ctx, s.client, s.accountKey(id), &a)
	return a, err
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) get(ctx context.Context, c stringGetter, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return mapRedisErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	data, err := c.Get(cctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return mapRedisErr(err)
	}
	return json.Unmarshal(data, v)
}

// Transaction implements Store.Transaction. Edits are staged and written
// together once fn succeeds; the commit aborts if a staged status is
// removed concurrently.
func (s *RedisStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return mapRedisErr(err)
	}
	tx := &redisTx{s: s, edits: make(map[string]model.EditFields)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit(ctx)
}

type redisTx struct {
	s     *RedisStore
	edits map[string]model.EditFields
	order []string
}

func (tx *redisTx) Account(ctx context.Context, id int64) (model.Account, error) {
	return tx.s.Account(ctx, id)
}

func (tx *redisTx) SaveEdit(ctx context.Context, uri string, f model.EditFields) error {
	if err := ctx.Err(); err != nil {
		return mapRedisErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, tx.s.timeout)
	defer cancel()
	n, err := tx.s.client.Exists(cctx, tx.s.statusKey(uri)).Result()
	if err != nil {
		return mapRedisErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, staged := tx.edits[uri]; !staged {
		tx.order = append(tx.order, uri)
	}
	tx.edits[uri] = f
	return nil
}

func (tx *redisTx) commit(ctx context.Context) error {
	if len(tx.order) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return mapRedisErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, tx.s.timeout)
	defer cancel()
	keys := make([]string, len(tx.order))
	for i, uri := range tx.order {
		keys[i] = tx.s.statusKey(uri)
	}
	err := tx.s.client.Watch(cctx, func(rtx *redis.Tx) error {
		updated := make([][]byte, len(tx.order))
		for i, uri := range tx.order {
			var st model.Status
			if err := tx.s.get(cctx, rtx, keys[i], &st); err != nil {
				return err
			}
			st.ApplyEdit(tx.edits[uri])
			st.UpdatedAt = time.Now().UTC()
			data, err := json.Marshal(st)
			if err != nil {
				return err
			}
			updated[i] = data
		}
		_, err := rtx.TxPipelined(cctx, func(pipe redis.Pipeliner) error {
			for i, key := range keys {
				pipe.Set(cctx, key, updated[i], 0)
			}
			return nil
		})
		return err
	}, keys...)
	return mapRedisErr(err)
}

func mapRedisErr(err error) error {
	switch {
	case err == nil:
		return nil
	case stdErrors.Is(err, context.DeadlineExceeded):
		return fediterrors.ErrTimeout
	case stdErrors.Is(err, redis.ErrClosed):
		return fediterrors.ErrConnectionClosed
	}
	return err
}
