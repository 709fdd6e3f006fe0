package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceRef locates the entry a source event produced in its settlement branch.
type SourceRef struct {
	BranchID string
	Module   SourceModule
	ID       string
}

// SettlementEvent is a verified payment, an expense or a sale to be turned
// into a balance change on BranchID's AccountType account.
type SettlementEvent struct {
	Date           time.Time
	Amount         decimal.Decimal
	Currency       Currency
	BranchID       string
	AccountType    AccountType
	OriginBranchID string
	SourceModule   SourceModule
	SourceID       string
	Direction      Direction
	Category       string
	Description    string
}

// Validate checks the event carries everything settlement needs.
func (e SettlementEvent) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !e.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	if e.BranchID == "" {
		return ErrInvalidBranch
	}
	if err := e.AccountType.Validate(); err != nil {
		return err
	}
	if err := e.Direction.Validate(); err != nil {
		return err
	}
	if e.SourceModule == "" || e.SourceID == "" {
		return ErrInvalidSource
	}
	return nil
}

// IsCrossBranch reports whether the funds were collected at a branch other
// than the one they settle into.
func (e SettlementEvent) IsCrossBranch() bool {
	return e.OriginBranchID != "" && e.OriginBranchID != e.BranchID
}

// Source returns the lookup key of the entry this event settles into.
func (e SettlementEvent) Source() SourceRef {
	return SourceRef{BranchID: e.BranchID, Module: e.SourceModule, ID: e.SourceID}
}
