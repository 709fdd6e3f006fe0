package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is an operational cost paid from a branch account.
type Expense struct {
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ID          string
	BranchID    string
	AccountType AccountType
	Currency    Currency
	Category    string
	Description string
	Amount      decimal.Decimal
}

// Validate checks the expense can be settled.
func (e *Expense) Validate() error {
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if !e.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	if e.BranchID == "" {
		return ErrInvalidBranch
	}
	return e.AccountType.Validate()
}

// SettlementEvent is the debit the expense produces on its own branch.
func (e *Expense) SettlementEvent() SettlementEvent {
	return SettlementEvent{
		Date:         e.Date,
		Amount:       e.Amount,
		Currency:     e.Currency,
		BranchID:     e.BranchID,
		AccountType:  e.AccountType,
		SourceModule: SourceExpense,
		SourceID:     e.ID,
		Direction:    DirectionDebit,
		Category:     e.Category,
		Description:  e.Description,
	}
}

// SourceRef locates the entry of the expense.
func (e *Expense) SourceRef() SourceRef {
	return SourceRef{BranchID: e.BranchID, Module: SourceExpense, ID: e.ID}
}
