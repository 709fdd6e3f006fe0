package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of business dates.
const DateLayout = "2006-01-02"

// ExchangeRate is the VES per USD rate in effect from Date on.
type ExchangeRate struct {
	Date      time.Time
	CreatedAt time.Time
	Rate      decimal.Decimal
}

// Validate checks the rate is positive.
func (r *ExchangeRate) Validate() error {
	if !r.Rate.IsPositive() {
		return ErrInvalidRate
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD business date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}
