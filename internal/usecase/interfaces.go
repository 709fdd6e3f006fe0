package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
)

// AccountRepository defines data access for branch accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance decimal.Decimal, version int64, at time.Time) error
	// ListByBranch lists the accounts of branchID, or of every branch when it is empty.
	ListByBranch(ctx context.Context, branchID string) ([]*domain.Account, error)
}

// EntryRepository defines data access for ledger entries.
type EntryRepository interface {
	// Create stores entry and assigns its Sequence.
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.Entry, error)
	FindBySource(ctx context.Context, tx Transaction, branchID string, module domain.SourceModule, sourceID string) (*domain.Entry, error)
	Delete(ctx context.Context, tx Transaction, id string) error
	// ShiftSnapshotsAfter adds delta to the balance snapshots of the entries of
	// accountID with a sequence greater than sequence.
	ShiftSnapshotsAfter(ctx context.Context, tx Transaction, accountID string, sequence int64, delta decimal.Decimal) error
	ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*domain.Entry, error)
	SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error)
	LatestByAccount(ctx context.Context, accountID string) (*domain.Entry, error)
}

// ExchangeRateRepository defines data access for the rate history.
type ExchangeRateRepository interface {
	Create(ctx context.Context, rate *domain.ExchangeRate) error
	Delete(ctx context.Context, date time.Time) error
	// FindOnOrBefore returns the rate of date, or of the latest earlier date.
	FindOnOrBefore(ctx context.Context, date time.Time) (*domain.ExchangeRate, error)
	List(ctx context.Context, limit, offset int) ([]*domain.ExchangeRate, error)
}

// PaymentRepository defines data access for payments.
type PaymentRepository interface {
	Create(ctx context.Context, tx Transaction, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Payment, error)
	Update(ctx context.Context, tx Transaction, payment *domain.Payment) error
	Delete(ctx context.Context, tx Transaction, id string) error
	// List lists payments, filtered by status when it is not empty.
	List(ctx context.Context, status domain.PaymentStatus, limit, offset int) ([]*domain.Payment, error)
}

// ExpenseRepository defines data access for expenses.
type ExpenseRepository interface {
	Create(ctx context.Context, tx Transaction, expense *domain.Expense) error
	GetByID(ctx context.Context, id string) (*domain.Expense, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Expense, error)
	Update(ctx context.Context, tx Transaction, expense *domain.Expense) error
	Delete(ctx context.Context, tx Transaction, id string) error
}

// FundTransferFilter narrows fund transfer listings.
type FundTransferFilter struct {
	Status domain.FundTransferStatus
	Group  *domain.TransferGroupKey
	Limit  int
	Offset int
}

// FundTransferRepository defines data access for inter-branch transfers.
type FundTransferRepository interface {
	Create(ctx context.Context, tx Transaction, transfer *domain.FundTransfer) error
	GetByID(ctx context.Context, id string) (*domain.FundTransfer, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.FundTransfer, error)
	Update(ctx context.Context, tx Transaction, transfer *domain.FundTransfer) error
	Delete(ctx context.Context, tx Transaction, id string) error
	ListPendingBySource(ctx context.Context, tx Transaction, module domain.SourceModule, sourceID string) ([]*domain.FundTransfer, error)
	List(ctx context.Context, filter FundTransferFilter) ([]*domain.FundTransfer, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage failures.
type Retrier interface {
	Retry(ctx context.Context, op func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// RateResolver resolves the exchange rate in effect on a date.
type RateResolver interface {
	RateFor(ctx context.Context, date time.Time) (decimal.Decimal, error)
}
