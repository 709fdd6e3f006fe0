package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type FundTransferStatus string

const (
	FundTransferPending   FundTransferStatus = "pending"
	FundTransferCompleted FundTransferStatus = "completed"
)

// TransferGroupKey groups pending transfers for batch completion.
type TransferGroupKey struct {
	AccountType AccountType
	Currency    Currency
}

// FundTransfer records money collected at FromBranchID that belongs to
// ToBranchID. Amount is in Currency, the settlement account's currency.
type FundTransfer struct {
	CreatedAt        time.Time
	CompletedAt      *time.Time
	ID               string
	FromBranchID     string
	ToBranchID       string
	AccountType      AccountType
	Currency         Currency
	OriginalCurrency Currency
	SourceModule     SourceModule
	SourceID         string
	Status           FundTransferStatus
	FromAccountID    string
	ToAccountID      string
	Notes            string
	Amount           decimal.Decimal
	OriginalAmount   decimal.Decimal
	AmountUSD        decimal.Decimal
	ExchangeRate     decimal.NullDecimal
}

// Validate validates the transfer before it is stored.
func (t *FundTransfer) Validate() error {
	if t.FromBranchID == t.ToBranchID {
		return ErrSameBranch
	}

	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	return nil
}

// GroupKey returns the batch the transfer belongs to.
func (t *FundTransfer) GroupKey() TransferGroupKey {
	return TransferGroupKey{AccountType: t.AccountType, Currency: t.Currency}
}

// IsCompleted reports whether the transfer has been settled.
func (t *FundTransfer) IsCompleted() bool {
	return t.Status == FundTransferCompleted
}

// MarkCompleted records completion. A transfer completes at most once.
func (t *FundTransfer) MarkCompleted(fromAccountID, toAccountID, notes string, at time.Time) error {
	if t.IsCompleted() {
		return ErrTransferAlreadyCompleted
	}
	t.Status = FundTransferCompleted
	t.FromAccountID = fromAccountID
	t.ToAccountID = toAccountID
	t.Notes = notes
	t.CompletedAt = &at
	return nil
}

// OtherCurrencyAmount replays the stored rate against Amount.
func (t *FundTransfer) OtherCurrencyAmount() decimal.NullDecimal {
	if !t.ExchangeRate.Valid || !t.ExchangeRate.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(ConvertAt(t.Amount, t.Currency, t.ExchangeRate.Decimal))
}
