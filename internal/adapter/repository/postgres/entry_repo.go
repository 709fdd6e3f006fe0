package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

const entryColumns = `id, sequence, date, branch_id, account_id, account_type, direction, currency,
	category, description, source_module, source_id, amount, other_currency_amount, exchange_rate,
	account_previous_balance, account_current_balance, account_version, created_at`

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	db DBTX
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db DBTX) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create creates a new entry and assigns its sequence number.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	row := conn(tx).QueryRow(ctx, `
		INSERT INTO entries (id, date, branch_id, account_id, account_type, direction, currency,
			category, description, source_module, source_id, amount, other_currency_amount, exchange_rate,
			account_previous_balance, account_current_balance, account_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING sequence`,
		entry.ID,
		dateToPg(entry.Date),
		entry.BranchID,
		entry.AccountID,
		string(entry.AccountType),
		string(entry.Direction),
		string(entry.Currency),
		entry.Category,
		entry.Description,
		string(entry.SourceModule),
		entry.SourceID,
		decimalToNumeric(entry.Amount),
		nullDecimalToNumeric(entry.OtherCurrencyAmount),
		nullDecimalToNumeric(entry.ExchangeRate),
		decimalToNumeric(entry.AccountPreviousBalance),
		decimalToNumeric(entry.AccountCurrentBalance),
		entry.AccountVersion,
		timeToPgTimestamptz(entry.CreatedAt),
	)

	return row.Scan(&entry.Sequence)
}

// GetByID retrieves an entry by ID.
func (r *EntryRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error) {
	entry, err := scanEntry(conn(tx).QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, domain.ErrEntryNotFound)
	}

	return entry, nil
}

// FindBySource returns the entry a source event produced on branchID.
func (r *EntryRepository) FindBySource(ctx context.Context, tx usecase.Transaction, branchID string, module domain.SourceModule, sourceID string) (*domain.Entry, error) {
	row := conn(tx).QueryRow(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE branch_id = $1 AND source_module = $2 AND source_id = $3
		ORDER BY sequence
		LIMIT 1`,
		branchID, string(module), sourceID)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, notFound(err, domain.ErrEntryNotFound)
	}

	return entry, nil
}

// Delete removes an entry.
func (r *EntryRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tag, err := conn(tx).Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// ShiftSnapshotsAfter adds delta to the balance snapshots of every entry of
// accountID recorded after sequence.
func (r *EntryRepository) ShiftSnapshotsAfter(ctx context.Context, tx usecase.Transaction, accountID string, sequence int64, delta decimal.Decimal) error {
	_, err := conn(tx).Exec(ctx, `
		UPDATE entries
		SET account_previous_balance = account_previous_balance + $3,
		    account_current_balance = account_current_balance + $3
		WHERE account_id = $1 AND sequence > $2`,
		accountID, sequence, decimalToNumeric(delta))

	return err
}

// ListByBranch lists the entries of a branch in sequence order.
func (r *EntryRepository) ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE branch_id = $1 ORDER BY sequence OFFSET $2`
	args := []any{branchID, offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// SumByAccount returns the signed sum of the entries of an account.
func (r *EntryRepository) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END), 0)
		FROM entries WHERE account_id = $1`, accountID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

// LatestByAccount returns the most recent entry of an account.
func (r *EntryRepository) LatestByAccount(ctx context.Context, accountID string) (*domain.Entry, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE account_id = $1
		ORDER BY sequence DESC
		LIMIT 1`, accountID)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, notFound(err, domain.ErrEntryNotFound)
	}

	return entry, nil
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		e                                domain.Entry
		date                             pgtype.Date
		accountType, direction, currency string
		module                           string
		amount, other, rate              pgtype.Numeric
		previous, current                pgtype.Numeric
		createdAt                        pgtype.Timestamptz
	)

	if err := row.Scan(
		&e.ID,
		&e.Sequence,
		&date,
		&e.BranchID,
		&e.AccountID,
		&accountType,
		&direction,
		&currency,
		&e.Category,
		&e.Description,
		&module,
		&e.SourceID,
		&amount,
		&other,
		&rate,
		&previous,
		&current,
		&e.AccountVersion,
		&createdAt,
	); err != nil {
		return nil, err
	}

	e.Date = pgDateToTime(date)
	e.AccountType = domain.AccountType(accountType)
	e.Direction = domain.Direction(direction)
	e.Currency = domain.Currency(currency)
	e.SourceModule = domain.SourceModule(module)
	e.Amount = numericToDecimal(amount)
	e.OtherCurrencyAmount = numericToNullDecimal(other)
	e.ExchangeRate = numericToNullDecimal(rate)
	e.AccountPreviousBalance = numericToDecimal(previous)
	e.AccountCurrentBalance = numericToDecimal(current)
	e.CreatedAt = createdAt.Time.UTC()

	return &e, nil
}
