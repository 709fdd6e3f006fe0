package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAccountSpec(t *testing.T) {
	spec, err := ParseAccountSpec("centro:usd_cash:usd:150.50")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.BranchID != "centro" || spec.Type != AccountTypeUSDCash || spec.Currency != CurrencyUSD {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if !spec.OpeningBalance.Equal(decimal.RequireFromString("150.50")) {
		t.Fatalf("expected opening 150.50, got %s", spec.OpeningBalance)
	}

	spec, err = ParseAccountSpec("norte:ves_bank:VES")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !spec.OpeningBalance.IsZero() {
		t.Fatalf("expected zero opening, got %s", spec.OpeningBalance)
	}

	for _, bad := range []string{"centro", "centro:usd_cash", ":usd_cash:USD", "centro:usd_cash:EUR", "centro:usd_cash:USD:abc"} {
		if _, err := ParseAccountSpec(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog([]string{"norte:usd_cash:USD", "centro:usd_cash:USD", "", "centro:ves_bank:VES"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(catalog.Accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(catalog.Accounts))
	}

	branches := catalog.Branches()
	if len(branches) != 2 || branches[0] != "centro" || branches[1] != "norte" {
		t.Fatalf("unexpected branches %v", branches)
	}

	_, err = ParseCatalog([]string{"centro:usd_cash:USD", "centro:usd_cash:USD:5"})
	if !errors.Is(err, ErrAccountAlreadyExists) {
		t.Fatalf("expected ErrAccountAlreadyExists, got %v", err)
	}
}
