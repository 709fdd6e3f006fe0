package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

const expenseColumns = `id, date, branch_id, account_type, amount, currency, category, description, created_at, updated_at`

// ExpenseRepository implements usecase.ExpenseRepository.
type ExpenseRepository struct {
	db DBTX
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db DBTX) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create creates a new expense.
func (r *ExpenseRepository) Create(ctx context.Context, tx usecase.Transaction, e *domain.Expense) error {
	_, err := conn(tx).Exec(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		expenseArgs(e)...)

	return err
}

// GetByID retrieves an expense by ID.
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, domain.ErrExpenseNotFound)
	}

	return e, nil
}

// GetByIDForUpdate retrieves an expense by ID with a FOR UPDATE lock.
func (r *ExpenseRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Expense, error) {
	e, err := scanExpense(conn(tx).QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, domain.ErrExpenseNotFound)
	}

	return e, nil
}

// Update overwrites an expense.
func (r *ExpenseRepository) Update(ctx context.Context, tx usecase.Transaction, e *domain.Expense) error {
	tag, err := conn(tx).Exec(ctx, `
		UPDATE expenses SET
			date = $2, branch_id = $3, account_type = $4, amount = $5, currency = $6,
			category = $7, description = $8, created_at = $9, updated_at = $10
		WHERE id = $1`,
		expenseArgs(e)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExpenseNotFound
	}

	return nil
}

// Delete removes an expense.
func (r *ExpenseRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tag, err := conn(tx).Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExpenseNotFound
	}

	return nil
}

func expenseArgs(e *domain.Expense) []any {
	return []any{
		e.ID,
		dateToPg(e.Date),
		e.BranchID,
		string(e.AccountType),
		decimalToNumeric(e.Amount),
		string(e.Currency),
		e.Category,
		e.Description,
		timeToPgTimestamptz(e.CreatedAt),
		timeToPgTimestamptz(e.UpdatedAt),
	}
}

func scanExpense(row pgx.Row) (*domain.Expense, error) {
	var (
		e                     domain.Expense
		date                  pgtype.Date
		accountType, currency string
		amount                pgtype.Numeric
		createdAt, updatedAt  pgtype.Timestamptz
	)

	if err := row.Scan(
		&e.ID,
		&date,
		&e.BranchID,
		&accountType,
		&amount,
		&currency,
		&e.Category,
		&e.Description,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	e.Date = pgDateToTime(date)
	e.AccountType = domain.AccountType(accountType)
	e.Amount = numericToDecimal(amount)
	e.Currency = domain.Currency(currency)
	e.CreatedAt = createdAt.Time.UTC()
	e.UpdatedAt = updatedAt.Time.UTC()

	return &e, nil
}
