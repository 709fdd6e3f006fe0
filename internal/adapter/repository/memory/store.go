// Package memory keeps the ledger in process memory. One writer transaction
// runs at a time; rollback restores the state captured at Begin.
package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// ErrTxClosed is returned when a finished transaction is used again.
var ErrTxClosed = errors.New("transaction already closed")

type state struct {
	accounts  map[string]domain.Account
	entries   map[string]domain.Entry
	payments  map[string]domain.Payment
	expenses  map[string]domain.Expense
	transfers map[string]domain.FundTransfer
	outbox    map[string]domain.OutboxEvent
	sequence  int64
}

func (s state) clone() state {
	return state{
		accounts:  maps.Clone(s.accounts),
		entries:   maps.Clone(s.entries),
		payments:  maps.Clone(s.payments),
		expenses:  maps.Clone(s.expenses),
		transfers: maps.Clone(s.transfers),
		outbox:    maps.Clone(s.outbox),
		sequence:  s.sequence,
	}
}

// Store holds every table. Exchange rates live outside the transactional
// state since they are written without a transaction.
type Store struct {
	writer sync.Mutex
	mu     sync.RWMutex
	state  state
	rates  map[string]domain.ExchangeRate
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		state: state{
			accounts:  make(map[string]domain.Account),
			entries:   make(map[string]domain.Entry),
			payments:  make(map[string]domain.Payment),
			expenses:  make(map[string]domain.Expense),
			transfers: make(map[string]domain.FundTransfer),
			outbox:    make(map[string]domain.OutboxEvent),
		},
		rates: make(map[string]domain.ExchangeRate),
	}
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin blocks until no other transaction is open.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.store.writer.Lock()

	m.store.mu.RLock()
	snapshot := m.store.state.clone()
	m.store.mu.RUnlock()

	return &Tx{store: m.store, snapshot: snapshot}, nil
}

// Tx is an in-memory transaction.
type Tx struct {
	store    *Store
	snapshot state
	done     bool
}

// Commit keeps the changes made since Begin.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return ErrTxClosed
	}
	t.done = true
	t.store.writer.Unlock()
	return nil
}

// Rollback restores the state captured at Begin.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return ErrTxClosed
	}
	t.done = true

	t.store.mu.Lock()
	t.store.state = t.snapshot
	t.store.mu.Unlock()

	t.store.writer.Unlock()
	return nil
}
