package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is one of the two currencies the chain operates in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyVES Currency = "VES"
)

// MoneyPlaces is the number of decimal places kept on converted amounts.
const MoneyPlaces int32 = 2

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return c, nil
}

// IsValid reports whether c is USD or VES.
func (c Currency) IsValid() bool {
	return c == CurrencyUSD || c == CurrencyVES
}

// Other returns the opposite currency.
func (c Currency) Other() Currency {
	if c == CurrencyUSD {
		return CurrencyVES
	}
	return CurrencyUSD
}

func (c Currency) String() string { return string(c) }

// DateOnly returns the calendar day of t as midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Conversion is an amount expressed in a target currency.
type Conversion struct {
	Amount      decimal.Decimal
	OtherAmount decimal.NullDecimal
	Rate        decimal.NullDecimal
}

// Convert expresses amount, given in from, in the to currency. Rate is VES per USD;
// a zero rate means none is known for the date.
func Convert(amount decimal.Decimal, from, to Currency, rate decimal.Decimal) (Conversion, error) {
	hasRate := rate.IsPositive()
	if (from == CurrencyVES || to == CurrencyVES) && !hasRate {
		if from != to {
			return Conversion{}, fmt.Errorf("%w: %w: %s to %s", ErrCurrencyMismatch, ErrNoExchangeRate, from, to)
		}
		return Conversion{}, ErrNoExchangeRate
	}

	if from == to {
		conv := Conversion{Amount: amount}
		if hasRate {
			conv.OtherAmount = decimal.NewNullDecimal(ConvertAt(amount, from, rate))
			conv.Rate = decimal.NewNullDecimal(rate)
		}
		return conv, nil
	}

	return Conversion{
		Amount:      ConvertAt(amount, from, rate),
		OtherAmount: decimal.NewNullDecimal(amount),
		Rate:        decimal.NewNullDecimal(rate),
	}, nil
}

// ConvertAt converts amount from its currency into the other one at rate.
func ConvertAt(amount decimal.Decimal, from Currency, rate decimal.Decimal) decimal.Decimal {
	if from == CurrencyUSD {
		return amount.Mul(rate).Round(MoneyPlaces)
	}
	return amount.DivRound(rate, MoneyPlaces)
}

// ToUSD returns the USD value of amount. VES amounts require a positive rate.
func ToUSD(amount decimal.Decimal, currency Currency, rate decimal.Decimal) (decimal.Decimal, error) {
	if currency == CurrencyUSD {
		return amount, nil
	}
	if !rate.IsPositive() {
		return decimal.Zero, ErrNoExchangeRate
	}
	return ConvertAt(amount, currency, rate), nil
}
