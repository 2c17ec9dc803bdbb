package adapter

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	fediterrors "github.com/mirkobrombin/go-fedit/v1/errors"
	"github.com/mirkobrombin/go-fedit/v1/model"
)

const defaultGormOpTimeout = 5 * time.Second

// GormStore implements Store using a GORM backend.
type GormStore struct {
	db      *gorm.DB
	timeout time.Duration
	txOpts  *sql.TxOptions
}

// GormOption configures a GormStore.
type GormOption func(*GormStore)

// WithGormTimeout sets the timeout applied to each call, including a whole
// transaction.
func WithGormTimeout(d time.Duration) GormOption {
	return func(s *GormStore) {
		s.timeout = d
	}
}

// WithGormIsolation sets the isolation level of edit transactions. The
// database default is used otherwise.
func WithGormIsolation(level sql.IsolationLevel) GormOption {
	return func(s *GormStore) {
		s.txOpts = &sql.TxOptions{Isolation: level}
	}
}

// NewGormStore returns a new GormStore using the provided GORM DB connection
// and migrates the accounts and statuses tables.
func NewGormStore(db *gorm.DB, opts ...GormOption) (*GormStore, error) {
	s := &GormStore{db: db, timeout: defaultGormOpTimeout}
	for _, opt := range opts {
		opt(s)
	}
	if err := db.AutoMigrate(&model.Account{}, &model.Status{}); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateStatus inserts st.
func (s *GormStore) CreateStatus(ctx context.Context, st *model.Status) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return mapGormErr(s.db.WithContext(cctx).Create(st).Error)
}

// CreateAccount inserts a.
func (s *GormStore) CreateAccount(ctx context.Context, a *model.Account) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return mapGormErr(s.db.WithContext(cctx).Create(a).Error)
}

// Status implements Store.Status.
func (s *GormStore) Status(ctx context.Context, uri string) (model.Status, error) {
	if err := ctx.Err(); err != nil {
		return model.Status{}, mapGormErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var st model.Status
	err := s.db.WithContext(cctx).First(&st, "uri = ?", uri).Error
	if err != nil {
		return model.Status{}, mapGormErr(err)
	}
	return st, nil
}

// Account implements AccountSource.Account.
func (s *GormStore) Account(ctx context.Context, id int64) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, mapGormErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return gormAccount(s.db.WithContext(cctx), id)
}

// Transaction implements Store.Transaction.
func (s *GormStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return mapGormErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var opts []*sql.TxOptions
	if s.txOpts != nil {
		opts = append(opts, s.txOpts)
	}
	err := s.db.WithContext(cctx).Transaction(func(tx *gorm.DB) error {
		return fn(cctx, gormTx{db: tx})
	}, opts...)
	return mapGormErr(err)
}

type gormTx struct {
	db *gorm.DB
}

func (tx gormTx) Account(ctx context.Context, id int64) (model.Account, error) {
	return gormAccount(tx.db.WithContext(ctx), id)
}

func (tx gormTx) SaveEdit(ctx context.Context, uri string, f model.EditFields) error {
	// A map is used so that false and empty values are written too.
	res := tx.db.WithContext(ctx).Model(&model.Status{}).Where("uri = ?", uri).Updates(map[string]any{
		"text":         f.Text,
		"spoiler_text": f.SpoilerText,
		"sensitive":    f.Sensitive,
		"language":     f.Language,
		"edited_at":    f.EditedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func gormAccount(db *gorm.DB, id int64) (model.Account, error) {
	var a model.Account
	if err := db.First(&a, "id = ?", id).Error; err != nil {
		return model.Account{}, mapGormErr(err)
	}
	return a, nil
}

func mapGormErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return fediterrors.ErrTimeout
	}
	return err
}
