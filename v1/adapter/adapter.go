package adapter

import (
	"context"
	"errors"
	"sync"

	"github.com/mirkobrombin/go-fedit/v1/model"
)

// ErrNotFound is returned when a status or account does not exist.
var ErrNotFound = errors.New("fedit: record not found")

// AccountSource looks up the author of a status.
type AccountSource interface {
	Account(ctx context.Context, id int64) (model.Account, error)
}

// Tx is the view of the store inside a transaction.
type Tx interface {
	AccountSource
	// SaveEdit overwrites the editable attributes of the status identified by uri.
	SaveEdit(ctx context.Context, uri string, f model.EditFields) error
}

// Store is the persistence collaborator used to apply edits.
type Store interface {
	AccountSource
	// Status returns the status identified by uri.
	Status(ctx context.Context, uri string) (model.Status, error)
	// Transaction runs fn in a transaction. Writes made through tx are
	// committed only if fn returns nil.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// InMemoryStore is a simple Store implementation backed by maps.
type InMemoryStore struct {
	mu       sync.RWMutex
	statuses map[string]model.Status
	accounts map[int64]model.Account
	nextID   int64
}

// NewInMemoryStore returns a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		statuses: make(map[string]model.Status),
		accounts: make(map[int64]model.Account),
	}
}

// PutStatus inserts or replaces a status, assigning an ID when missing.
func (s *InMemoryStore) PutStatus(st model.Status) model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == 0 {
		s.nextID++
		st.ID = s.nextID
	}
	s.statuses[st.URI] = st
	return st
}

// PutAccount inserts or replaces an account.
func (s *InMemoryStore) PutAccount(a model.Account) {
	s.mu.Lock()
	s.accounts[a.ID] = a
	s.mu.Unlock()
}

// Status implements Store.Status.
func (s *InMemoryStore) Status(ctx context.Context, uri string) (model.Status, error) {
	if err := ctx.Err(); err != nil {
		return model.Status{}, err
	}
	s.mu.RLock()
	st, ok := s.statuses[uri]
	s.mu.RUnlock()
	if !ok {
		return model.Status{}, ErrNotFound
	}
	return st, nil
}

// Account implements AccountSource.Account.
func (s *InMemoryStore) Account(ctx context.Context, id int64) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, err
	}
	s.mu.RLock()
	a, ok := s.accounts[id]
	s.mu.RUnlock()
	if !ok {
		return model.Account{}, ErrNotFound
	}
	return a, nil
}

// Transaction implements Store.Transaction. Writes are staged and applied
// together under the store lock once fn succeeds.
func (s *InMemoryStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &inMemoryTx{s: s, edits: make(map[string]model.EditFields)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit(ctx)
}

type inMemoryTx struct {
	s     *InMemoryStore
	edits map[string]model.EditFields
	order []string
}

func (tx *inMemoryTx) Account(ctx context.Context, id int64) (model.Account, error) {
	return tx.s.Account(ctx, id)
}

func (tx *inMemoryTx) SaveEdit(ctx context.Context, uri string, f model.EditFields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.s.mu.RLock()
	_, ok := tx.s.statuses[uri]
	tx.s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if _, staged := tx.edits[uri]; !staged {
		tx.order = append(tx.order, uri)
	}
	tx.edits[uri] = f
	return nil
}

func (tx *inMemoryTx) commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	for _, uri := range tx.order {
		if _, ok := tx.s.statuses[uri]; !ok {
			return ErrNotFound
		}
	}
	for _, uri := range tx.order {
		st := tx.s.statuses[uri]
		st.ApplyEdit(tx.edits[uri])
		tx.s.statuses[uri] = st
	}
	return nil
}
