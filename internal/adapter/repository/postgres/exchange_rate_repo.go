package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/branchledger/internal/domain"
)

// ExchangeRateRepository implements usecase.ExchangeRateRepository.
type ExchangeRateRepository struct {
	db DBTX
}

// NewExchangeRateRepository creates a new ExchangeRateRepository.
func NewExchangeRateRepository(db DBTX) *ExchangeRateRepository {
	return &ExchangeRateRepository{db: db}
}

// Create records a rate. One rate per date.
func (r *ExchangeRateRepository) Create(ctx context.Context, rate *domain.ExchangeRate) error {
	_, err := r.db.Exec(ctx, `INSERT INTO exchange_rates (date, rate, created_at) VALUES ($1, $2, $3)`,
		dateToPg(rate.Date), decimalToNumeric(rate.Rate), timeToPgTimestamptz(rate.CreatedAt))
	if isUniqueViolation(err) {
		return domain.ErrRateAlreadyExists
	}

	return err
}

// Delete removes the rate of date.
func (r *ExchangeRateRepository) Delete(ctx context.Context, date time.Time) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM exchange_rates WHERE date = $1`, dateToPg(date))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRateNotFound
	}

	return nil
}

// FindOnOrBefore returns the rate of date, or of the latest earlier date.
func (r *ExchangeRateRepository) FindOnOrBefore(ctx context.Context, date time.Time) (*domain.ExchangeRate, error) {
	row := r.db.QueryRow(ctx, `
		SELECT date, rate, created_at FROM exchange_rates
		WHERE date <= $1
		ORDER BY date DESC
		LIMIT 1`, dateToPg(date))

	rate, err := scanRate(row)
	if err != nil {
		return nil, notFound(err, domain.ErrRateNotFound)
	}

	return rate, nil
}

// List lists rates, newest first.
func (r *ExchangeRateRepository) List(ctx context.Context, limit, offset int) ([]*domain.ExchangeRate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date, rate, created_at FROM exchange_rates
		ORDER BY date DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rates := make([]*domain.ExchangeRate, 0)
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}

	return rates, rows.Err()
}

func scanRate(row pgx.Row) (*domain.ExchangeRate, error) {
	var (
		date      pgtype.Date
		rate      pgtype.Numeric
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&date, &rate, &createdAt); err != nil {
		return nil, err
	}

	return &domain.ExchangeRate{
		Date:      pgDateToTime(date),
		Rate:      numericToDecimal(rate),
		CreatedAt: createdAt.Time.UTC(),
	}, nil
}
