package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

const paymentColumns = `id, date, amount, currency, amount_usd, exchange_rate, paid_to_branch_id,
	paid_to_account_type, origin_branch_id, link_kind, link_id, reference, description, status,
	verified_by, verified_at, rejection_reason, created_at, updated_at`

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct {
	db DBTX
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create creates a new payment.
func (r *PaymentRepository) Create(ctx context.Context, tx usecase.Transaction, p *domain.Payment) error {
	_, err := conn(tx).Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		paymentArgs(p)...)

	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, domain.ErrPaymentNotFound)
	}

	return p, nil
}

// GetByIDForUpdate retrieves a payment by ID with a FOR UPDATE lock.
func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Payment, error) {
	p, err := scanPayment(conn(tx).QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, domain.ErrPaymentNotFound)
	}

	return p, nil
}

// Update overwrites a payment.
func (r *PaymentRepository) Update(ctx context.Context, tx usecase.Transaction, p *domain.Payment) error {
	tag, err := conn(tx).Exec(ctx, `
		UPDATE payments SET
			date = $2, amount = $3, currency = $4, amount_usd = $5, exchange_rate = $6,
			paid_to_branch_id = $7, paid_to_account_type = $8, origin_branch_id = $9,
			link_kind = $10, link_id = $11, reference = $12, description = $13, status = $14,
			verified_by = $15, verified_at = $16, rejection_reason = $17, created_at = $18, updated_at = $19
		WHERE id = $1`,
		paymentArgs(p)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

// Delete removes a payment.
func (r *PaymentRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tag, err := conn(tx).Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

// List lists payments, filtered by status when it is not empty.
func (r *PaymentRepository) List(ctx context.Context, status domain.PaymentStatus, limit, offset int) ([]*domain.Payment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE $1 = '' OR status = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

func paymentArgs(p *domain.Payment) []any {
	return []any{
		p.ID,
		dateToPg(p.Date),
		decimalToNumeric(p.Amount),
		string(p.Currency),
		decimalToNumeric(p.AmountUSD),
		nullDecimalToNumeric(p.ExchangeRate),
		p.PaidToBranchID,
		string(p.PaidToAccountType),
		p.OriginBranchID,
		string(p.LinkKind),
		p.LinkID,
		p.Reference,
		p.Description,
		string(p.Status),
		p.VerifiedBy,
		timePtrToPgTimestamptz(p.VerifiedAt),
		p.RejectionReason,
		timeToPgTimestamptz(p.CreatedAt),
		timeToPgTimestamptz(p.UpdatedAt),
	}
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p                                domain.Payment
		date                             pgtype.Date
		amount, amountUSD, rate          pgtype.Numeric
		currency, accountType, linkKind  string
		status                           string
		verifiedAt, createdAt, updatedAt pgtype.Timestamptz
	)

	if err := row.Scan(
		&p.ID,
		&date,
		&amount,
		&currency,
		&amountUSD,
		&rate,
		&p.PaidToBranchID,
		&accountType,
		&p.OriginBranchID,
		&linkKind,
		&p.LinkID,
		&p.Reference,
		&p.Description,
		&status,
		&p.VerifiedBy,
		&verifiedAt,
		&p.RejectionReason,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	p.Date = pgDateToTime(date)
	p.Amount = numericToDecimal(amount)
	p.Currency = domain.Currency(currency)
	p.AmountUSD = numericToDecimal(amountUSD)
	p.ExchangeRate = numericToNullDecimal(rate)
	p.PaidToAccountType = domain.AccountType(accountType)
	p.LinkKind = domain.LinkKind(linkKind)
	p.Status = domain.PaymentStatus(status)
	p.VerifiedAt = pgTimestamptzToPtr(verifiedAt)
	p.CreatedAt = createdAt.Time.UTC()
	p.UpdatedAt = updatedAt.Time.UTC()

	return &p, nil
}
