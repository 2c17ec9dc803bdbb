// Package presets wires ready-to-use edit pipelines.
package presets

import (
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mirkobrombin/go-fedit/v1/adapter"
	"github.com/mirkobrombin/go-fedit/v1/cache"
	"github.com/mirkobrombin/go-fedit/v1/edit"
	"github.com/mirkobrombin/go-fedit/v1/lock"
	"github.com/mirkobrombin/go-fedit/v1/model"
	"github.com/mirkobrombin/go-fedit/v1/syncbus"
)

// RedisOptions configures the connection to Redis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// Standalone is an edit pipeline that runs entirely in-memory.
type Standalone struct {
	*edit.Applier
	Store *adapter.InMemoryStore
	Locks *lock.InMemory
	Bus   *syncbus.InMemoryBus
}

// NewStandalone creates a pipeline with no external dependencies. Leases
// only exclude workers of the same process. Useful for local development
// and tests.
func NewStandalone(opts ...edit.Option) *Standalone {
	store := adapter.NewInMemoryStore()
	locks := lock.NewInMemory()
	bus := syncbus.NewInMemoryBus()
	opts = append([]edit.Option{edit.WithBus(bus)}, opts...)
	return &Standalone{
		Applier: edit.New(store, lock.NewGate(locks), opts...),
		Store:   store,
		Locks:   locks,
		Bus:     bus,
	}
}

// RedisGormOptions configures NewRedisGorm.
type RedisGormOptions struct {
	Redis RedisOptions
	// Dialector opens the database holding statuses and accounts,
	// e.g. sqlite.Open(dsn) or postgres.Open(dsn).
	Dialector gorm.Dialector
	// Gorm is passed to gorm.Open. Nil uses the defaults.
	Gorm *gorm.Config
	// AccountTTL bounds how long an author's policy is cached.
	AccountTTL time.Duration
	// Apply holds extra applier options.
	Apply []edit.Option
}

// Distributed is an edit pipeline whose leases live in Redis, so any number
// of processes may apply edits against the same database.
type Distributed struct {
	*edit.Applier
	Store    *adapter.GormStore
	Accounts *cache.Accounts
	Bus      *syncbus.RedisBus

	client   *redis.Client
	db       *gorm.DB
	accounts *cache.RistrettoCache[model.Account]
}

// NewRedisGorm creates a pipeline using Redis for leases and notifications,
// GORM for persistence and ristretto to cache authors.
func NewRedisGorm(opts RedisGormOptions) (*Distributed, error) {
	if opts.Dialector == nil {
		return nil, errors.New("fedit: presets: no database dialector")
	}
	cfg := opts.Gorm
	if cfg == nil {
		cfg = &gorm.Config{}
	}
	db, err := gorm.Open(opts.Dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("fedit: open database: %w", err)
	}
	store, err := adapter.NewGormStore(db)
	if err != nil {
		closeDB(db)
		return nil, err
	}
	rc, err := cache.NewRistretto[model.Account]()
	if err != nil {
		closeDB(db)
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Redis.Addr,
		Password: opts.Redis.Password,
		DB:       opts.Redis.DB,
	})
	bus := syncbus.NewRedisBus(client)

	var accOpts []cache.AccountsOption
	if opts.AccountTTL > 0 {
		accOpts = append(accOpts, cache.WithAccountTTL(opts.AccountTTL))
	}
	accounts := cache.NewAccounts(store, rc, accOpts...)

	applyOpts := append([]edit.Option{edit.WithBus(bus), edit.WithAccounts(accounts)}, opts.Apply...)
	return &Distributed{
		Applier:  edit.New(store, lock.NewGate(lock.NewRedis(client)), applyOpts...),
		Store:    store,
		Accounts: accounts,
		Bus:      bus,
		client:   client,
		db:       db,
		accounts: rc,
	}, nil
}

// Close releases the Redis connection, the account cache and the database
// opened through the dialector.
func (d *Distributed) Close() error {
	_ = d.Bus.Close()
	d.accounts.Close()
	err := d.client.Close()
	if sqlDB, dbErr := d.db.DB(); dbErr == nil {
		err = errors.Join(err, sqlDB.Close())
	}
	return err
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// RedisOnly is an edit pipeline keeping statuses, leases and notifications
// in a single Redis.
type RedisOnly struct {
	*edit.Applier
	Store *adapter.RedisStore
	Bus   *syncbus.RedisBus

	client *redis.Client
}

// NewRedis creates a pipeline backed only by Redis.
func NewRedis(opts RedisOptions, apply ...edit.Option) *RedisOnly {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	store := adapter.NewRedisStore(client)
	bus := syncbus.NewRedisBus(client)
	apply = append([]edit.Option{edit.WithBus(bus)}, apply...)
	return &RedisOnly{
		Applier: edit.New(store, lock.NewGate(lock.NewRedis(client)), apply...),
		Store:   store,
		Bus:     bus,
		client:  client,
	}
}

// Close releases the Redis connection.
func (r *RedisOnly) Close() error {
	_ = r.Bus.Close()
	return r.client.Close()
}
