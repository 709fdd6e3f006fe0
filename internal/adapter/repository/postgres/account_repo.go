package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

const accountColumns = `id, branch_id, type, name, currency, balance, provisioning_balance, version, created_at, last_activity_at`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	_, err := conn(tx).Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		account.ID,
		account.BranchID,
		string(account.Type),
		account.Name,
		string(account.Currency),
		decimalToNumeric(account.Balance),
		decimalToNumeric(account.ProvisioningBalance),
		account.Version,
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.LastActivityAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrAccountAlreadyExists
	}

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	account, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, domain.ErrAccountNotFound)
	}

	return account, nil
}

// GetByIDForUpdate retrieves an account by ID with a FOR UPDATE lock.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	row := conn(tx).QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)

	account, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, domain.ErrAccountNotFound)
	}

	return account, nil
}

// UpdateBalance updates the balance and version of an account.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, version int64, at time.Time) error {
	tag, err := conn(tx).Exec(ctx, `
		UPDATE accounts SET balance = $2, version = $3, last_activity_at = $4
		WHERE id = $1`,
		id, decimalToNumeric(balance), version, timeToPgTimestamptz(at),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// ListByBranch lists the accounts of branchID, or every account when it is empty.
func (r *AccountRepository) ListByBranch(ctx context.Context, branchID string) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE $1 = '' OR branch_id = $1
		ORDER BY id`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a                    domain.Account
		accountType          string
		currency             string
		balance, provisioned pgtype.Numeric
		createdAt, activity  pgtype.Timestamptz
	)

	if err := row.Scan(
		&a.ID,
		&a.BranchID,
		&accountType,
		&a.Name,
		&currency,
		&balance,
		&provisioned,
		&a.Version,
		&createdAt,
		&activity,
	); err != nil {
		return nil, err
	}

	a.Type = domain.AccountType(accountType)
	a.Currency = domain.Currency(currency)
	a.Balance = numericToDecimal(balance)
	a.ProvisioningBalance = numericToDecimal(provisioned)
	a.CreatedAt = createdAt.Time.UTC()
	a.LastActivityAt = activity.Time.UTC()

	return &a, nil
}
