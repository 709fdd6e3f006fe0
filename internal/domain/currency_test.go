package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestConvert(t *testing.T) {
	rate := decimal.RequireFromString("36.50")

	tests := []struct {
		name        string
		amount      string
		from        Currency
		to          Currency
		rate        decimal.Decimal
		wantAmount  string
		wantOther   string
		wantRate    bool
		expectError []error
	}{
		{
			name: "usd into ves account", amount: "100", from: CurrencyUSD, to: CurrencyVES, rate: rate,
			wantAmount: "3650", wantOther: "100", wantRate: true,
		},
		{
			name: "ves into usd account rounds to cents", amount: "3650", from: CurrencyVES, to: CurrencyUSD,
			rate: decimal.RequireFromString("36.7"), wantAmount: "99.46", wantOther: "3650", wantRate: true,
		},
		{
			name: "usd into usd account with rate", amount: "10", from: CurrencyUSD, to: CurrencyUSD, rate: rate,
			wantAmount: "10", wantOther: "365", wantRate: true,
		},
		{
			name: "ves into ves account", amount: "730", from: CurrencyVES, to: CurrencyVES, rate: rate,
			wantAmount: "730", wantOther: "20", wantRate: true,
		},
		{
			name: "usd into usd account without rate", amount: "10", from: CurrencyUSD, to: CurrencyUSD,
			rate: decimal.Zero, wantAmount: "10",
		},
		{
			name: "ves into ves account without rate", amount: "10", from: CurrencyVES, to: CurrencyVES,
			rate: decimal.Zero, expectError: []error{ErrNoExchangeRate},
		},
		{
			name: "cross currency without rate", amount: "10", from: CurrencyUSD, to: CurrencyVES,
			rate: decimal.Zero, expectError: []error{ErrNoExchangeRate, ErrCurrencyMismatch},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, err := Convert(decimal.RequireFromString(tt.amount), tt.from, tt.to, tt.rate)

			if len(tt.expectError) > 0 {
				for _, want := range tt.expectError {
					if !errors.Is(err, want) {
						t.Fatalf("expected %v, got %v", want, err)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !conv.Amount.Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("expected amount %s, got %s", tt.wantAmount, conv.Amount)
			}
			if tt.wantOther == "" {
				if conv.OtherAmount.Valid {
					t.Errorf("expected no other amount, got %s", conv.OtherAmount.Decimal)
				}
			} else if !conv.OtherAmount.Valid || !conv.OtherAmount.Decimal.Equal(decimal.RequireFromString(tt.wantOther)) {
				t.Errorf("expected other amount %s, got %v", tt.wantOther, conv.OtherAmount)
			}
			if conv.Rate.Valid != tt.wantRate {
				t.Errorf("expected rate stored=%v, got %v", tt.wantRate, conv.Rate.Valid)
			}
		})
	}
}

func TestToUSD(t *testing.T) {
	got, err := ToUSD(decimal.NewFromInt(365), CurrencyVES, decimal.RequireFromString("36.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected 10, got %s", got)
	}

	if _, err := ToUSD(decimal.NewFromInt(365), CurrencyVES, decimal.Zero); !errors.Is(err, ErrNoExchangeRate) {
		t.Errorf("expected ErrNoExchangeRate, got %v", err)
	}

	got, err = ToUSD(decimal.NewFromInt(7), CurrencyUSD, decimal.Zero)
	if err != nil || !got.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected 7 without rate, got %s (%v)", got, err)
	}
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("VET", -4*3600)
	in := time.Date(2024, 3, 10, 23, 30, 0, 0, loc)

	got := DateOnly(in)
	want := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" usd ")
	if err != nil || c != CurrencyUSD {
		t.Fatalf("expected USD, got %q (%v)", c, err)
	}
	if c.Other() != CurrencyVES {
		t.Errorf("expected VES as other currency, got %s", c.Other())
	}
	if _, err := ParseCurrency("BTC"); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("expected ErrInvalidCurrency, got %v", err)
	}
}
