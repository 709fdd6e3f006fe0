package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

const fundTransferColumns = `id, from_branch_id, to_branch_id, account_type, amount, currency,
	original_amount, original_currency, amount_usd, exchange_rate, source_module, source_id,
	status, from_account_id, to_account_id, notes, created_at, completed_at`

// FundTransferRepository implements usecase.FundTransferRepository.
type FundTransferRepository struct {
	db DBTX
}

// NewFundTransferRepository creates a new FundTransferRepository.
func NewFundTransferRepository(db DBTX) *FundTransferRepository {
	return &FundTransferRepository{db: db}
}

// Create creates a new fund transfer.
func (r *FundTransferRepository) Create(ctx context.Context, tx usecase.Transaction, t *domain.FundTransfer) error {
	_, err := conn(tx).Exec(ctx, `
		INSERT INTO fund_transfers (`+fundTransferColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		fundTransferArgs(t)...)

	return err
}

// GetByID retrieves a fund transfer by ID.
func (r *FundTransferRepository) GetByID(ctx context.Context, id string) (*domain.FundTransfer, error) {
	t, err := scanFundTransfer(r.db.QueryRow(ctx, `SELECT `+fundTransferColumns+` FROM fund_transfers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, domain.ErrTransferNotFound)
	}

	return t, nil
}

// GetByIDForUpdate retrieves a fund transfer by ID with a FOR UPDATE lock.
func (r *FundTransferRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.FundTransfer, error) {
	t, err := scanFundTransfer(conn(tx).QueryRow(ctx,
		`SELECT `+fundTransferColumns+` FROM fund_transfers WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, domain.ErrTransferNotFound)
	}

	return t, nil
}

// Update overwrites a fund transfer.
func (r *FundTransferRepository) Update(ctx context.Context, tx usecase.Transaction, t *domain.FundTransfer) error {
	tag, err := conn(tx).Exec(ctx, `
		UPDATE fund_transfers SET
			from_branch_id = $2, to_branch_id = $3, account_type = $4, amount = $5, currency = $6,
			original_amount = $7, original_currency = $8, amount_usd = $9, exchange_rate = $10,
			source_module = $11, source_id = $12, status = $13, from_account_id = $14,
			to_account_id = $15, notes = $16, created_at = $17, completed_at = $18
		WHERE id = $1`,
		fundTransferArgs(t)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransferNotFound
	}

	return nil
}

// Delete removes a fund transfer.
func (r *FundTransferRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tag, err := conn(tx).Exec(ctx, `DELETE FROM fund_transfers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransferNotFound
	}

	return nil
}

// ListPendingBySource lists the pending transfers a source event created.
func (r *FundTransferRepository) ListPendingBySource(ctx context.Context, tx usecase.Transaction, module domain.SourceModule, sourceID string) ([]*domain.FundTransfer, error) {
	rows, err := conn(tx).Query(ctx, `
		SELECT `+fundTransferColumns+` FROM fund_transfers
		WHERE source_module = $1 AND source_id = $2 AND status = $3
		ORDER BY created_at, id
		FOR UPDATE`,
		string(module), sourceID, string(domain.FundTransferPending))
	if err != nil {
		return nil, err
	}

	return collectFundTransfers(rows)
}

// List lists transfers matching filter, oldest first.
func (r *FundTransferRepository) List(ctx context.Context, filter usecase.FundTransferFilter) ([]*domain.FundTransfer, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		conds = append(conds, "status = "+arg(string(filter.Status)))
	}
	if filter.Group != nil {
		conds = append(conds, "account_type = "+arg(string(filter.Group.AccountType)))
		conds = append(conds, "currency = "+arg(string(filter.Group.Currency)))
	}

	query := `SELECT ` + fundTransferColumns + ` FROM fund_transfers`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return collectFundTransfers(rows)
}

func collectFundTransfers(rows pgx.Rows) ([]*domain.FundTransfer, error) {
	defer rows.Close()

	transfers := make([]*domain.FundTransfer, 0)
	for rows.Next() {
		t, err := scanFundTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}

	return transfers, rows.Err()
}

func fundTransferArgs(t *domain.FundTransfer) []any {
	return []any{
		t.ID,
		t.FromBranchID,
		t.ToBranchID,
		string(t.AccountType),
		decimalToNumeric(t.Amount),
		string(t.Currency),
		decimalToNumeric(t.OriginalAmount),
		string(t.OriginalCurrency),
		decimalToNumeric(t.AmountUSD),
		nullDecimalToNumeric(t.ExchangeRate),
		string(t.SourceModule),
		t.SourceID,
		string(t.Status),
		t.FromAccountID,
		t.ToAccountID,
		t.Notes,
		timeToPgTimestamptz(t.CreatedAt),
		timePtrToPgTimestamptz(t.CompletedAt),
	}
}

func scanFundTransfer(row pgx.Row) (*domain.FundTransfer, error) {
	var (
		t                                   domain.FundTransfer
		accountType, currency, origCurrency string
		module, status                      string
		amount, original, amountUSD, rate   pgtype.Numeric
		createdAt, completedAt              pgtype.Timestamptz
	)

	if err := row.Scan(
		&t.ID,
		&t.FromBranchID,
		&t.ToBranchID,
		&accountType,
		&amount,
		&currency,
		&original,
		&origCurrency,
		&amountUSD,
		&rate,
		&module,
		&t.SourceID,
		&status,
		&t.FromAccountID,
		&t.ToAccountID,
		&t.Notes,
		&createdAt,
		&completedAt,
	); err != nil {
		return nil, err
	}

	t.AccountType = domain.AccountType(accountType)
	t.Amount = numericToDecimal(amount)
	t.Currency = domain.Currency(currency)
	t.OriginalAmount = numericToDecimal(original)
	t.OriginalCurrency = domain.Currency(origCurrency)
	t.AmountUSD = numericToDecimal(amountUSD)
	t.ExchangeRate = numericToNullDecimal(rate)
	t.SourceModule = domain.SourceModule(module)
	t.Status = domain.FundTransferStatus(status)
	t.CreatedAt = createdAt.Time.UTC()
	t.CompletedAt = pgTimestamptzToPtr(completedAt)

	return &t, nil
}
