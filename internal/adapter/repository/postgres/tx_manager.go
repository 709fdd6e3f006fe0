package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/branchledger/internal/usecase"
)

var (
	_ usecase.TransactionManager     = (*TxManager)(nil)
	_ usecase.AccountRepository      = (*AccountRepository)(nil)
	_ usecase.EntryRepository        = (*EntryRepository)(nil)
	_ usecase.ExchangeRateRepository = (*ExchangeRateRepository)(nil)
	_ usecase.PaymentRepository      = (*PaymentRepository)(nil)
	_ usecase.ExpenseRepository      = (*ExpenseRepository)(nil)
	_ usecase.FundTransferRepository = (*FundTransferRepository)(nil)
	_ usecase.OutboxRepository       = (*OutboxRepository)(nil)
	_ usecase.Retrier                = (*Retrier)(nil)
	_ usecase.IDGenerator            = (*ULIDGenerator)(nil)
)

type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	pool pgxPool
}

// NewTxManager creates a new TxManager. Transactions run at the server
// default isolation; accounts are serialized with row locks.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return newTxManagerWithPool(pool)
}

func newTxManagerWithPool(pool pgxPool) *TxManager {
	return &TxManager{pool: pool}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction. Rolling back a committed
// transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}
