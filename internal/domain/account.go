package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType names one of the fixed cash/bank accounts of a branch.
type AccountType string

const (
	AccountTypeUSDCash AccountType = "usd_cash"
	AccountTypeVESCash AccountType = "ves_cash"
	AccountTypeVESBank AccountType = "ves_bank"
	AccountTypeUSDBank AccountType = "usd_bank"
)

// Validate checks the type is usable as part of an account key.
func (t AccountType) Validate() error {
	s := string(t)
	if strings.TrimSpace(s) == "" || strings.ContainsAny(s, ": /") {
		return fmt.Errorf("%w: %q", ErrInvalidAccountType, s)
	}
	return nil
}

// AccountID builds the stable identifier of the (branch, type) account.
func AccountID(branchID string, accountType AccountType) string {
	return branchID + ":" + string(accountType)
}

// Account is a per-branch balance holder in a single currency.
type Account struct {
	LastActivityAt      time.Time
	CreatedAt           time.Time
	ID                  string
	BranchID            string
	Type                AccountType
	Name                string
	Currency            Currency
	Balance             decimal.Decimal
	ProvisioningBalance decimal.Decimal
	Version             int64
}

// ApplyDelta returns the balance after adding a signed amount.
func (a *Account) ApplyDelta(delta decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(delta)
}
