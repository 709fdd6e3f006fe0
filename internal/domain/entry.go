package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction of a balance movement.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Validate checks d is credit or debit.
func (d Direction) Validate() error {
	if d != DirectionCredit && d != DirectionDebit {
		return ErrInvalidDirection
	}
	return nil
}

// Sign returns amount as a signed delta: credits add, debits subtract.
func (d Direction) Sign(amount decimal.Decimal) decimal.Decimal {
	if d == DirectionDebit {
		return amount.Neg()
	}
	return amount
}

// SourceModule identifies the workflow that produced an entry.
type SourceModule string

const (
	SourcePayment      SourceModule = "payment"
	SourceExpense      SourceModule = "expense"
	SourceSale         SourceModule = "sale"
	SourceFundTransfer SourceModule = "fund_transfer"
)

// Entry is one immutable movement on a branch account.
type Entry struct {
	Date                   time.Time
	CreatedAt              time.Time
	ID                     string
	BranchID               string
	AccountID              string
	AccountType            AccountType
	Direction              Direction
	Currency               Currency
	Category               string
	Description            string
	SourceModule           SourceModule
	SourceID               string
	Amount                 decimal.Decimal
	OtherCurrencyAmount    decimal.NullDecimal
	ExchangeRate           decimal.NullDecimal
	AccountPreviousBalance decimal.Decimal
	AccountCurrentBalance  decimal.Decimal
	AccountVersion         int64
	Sequence               int64
}

// SignedAmount is the amount as applied to the account balance.
func (e *Entry) SignedAmount() decimal.Decimal {
	return e.Direction.Sign(e.Amount)
}

// Validate checks the fields required before the entry is appended.
func (e *Entry) Validate() error {
	if e.BranchID == "" {
		return ErrInvalidBranch
	}
	if err := e.AccountType.Validate(); err != nil {
		return err
	}
	if err := e.Direction.Validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !e.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	if e.SourceModule == "" || e.SourceID == "" {
		return ErrInvalidSource
	}
	return nil
}
