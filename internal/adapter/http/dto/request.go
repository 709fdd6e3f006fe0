package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// AddRateRequest represents a request to record an exchange rate.
type AddRateRequest struct {
	Date string          `json:"date"`
	Rate decimal.Decimal `json:"rate"`
}

// ParseDate returns the rate date, today when empty.
func (r *AddRateRequest) ParseDate() (time.Time, error) {
	return parseBusinessDate(r.Date)
}

// PaymentRequest represents a request to create or edit a payment.
type PaymentRequest struct {
	Date              string          `json:"date"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	PaidToBranchID    string          `json:"paid_to_branch_id"`
	PaidToAccountType string          `json:"paid_to_account_type"`
	OriginBranchID    string          `json:"origin_branch_id"`
	LinkKind          string          `json:"link_kind"`
	LinkID            string          `json:"link_id"`
	Reference         string          `json:"reference,omitempty"`
	Description       string          `json:"description,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *PaymentRequest) ToUseCaseInput() (usecase.CreatePaymentInput, error) {
	date, err := parseBusinessDate(r.Date)
	if err != nil {
		return usecase.CreatePaymentInput{}, err
	}
	currency, err := domain.ParseCurrency(r.Currency)
	if err != nil {
		return usecase.CreatePaymentInput{}, err
	}

	return usecase.CreatePaymentInput{
		Date:              date,
		Amount:            r.Amount,
		Currency:          currency,
		PaidToBranchID:    r.PaidToBranchID,
		PaidToAccountType: domain.AccountType(r.PaidToAccountType),
		OriginBranchID:    r.OriginBranchID,
		LinkKind:          domain.LinkKind(r.LinkKind),
		LinkID:            r.LinkID,
		Reference:         r.Reference,
		Description:       r.Description,
	}, nil
}

// RejectPaymentRequest represents a request to reject a payment.
type RejectPaymentRequest struct {
	Reason string `json:"reason"`
}

// ExpenseRequest represents a request to create or edit an expense.
type ExpenseRequest struct {
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	BranchID    string          `json:"branch_id"`
	AccountType string          `json:"account_type"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ExpenseRequest) ToUseCaseInput() (usecase.ExpenseInput, error) {
	date, err := parseBusinessDate(r.Date)
	if err != nil {
		return usecase.ExpenseInput{}, err
	}
	currency, err := domain.ParseCurrency(r.Currency)
	if err != nil {
		return usecase.ExpenseInput{}, err
	}

	return usecase.ExpenseInput{
		Date:        date,
		Amount:      r.Amount,
		Currency:    currency,
		BranchID:    r.BranchID,
		AccountType: domain.AccountType(r.AccountType),
		Category:    r.Category,
		Description: r.Description,
	}, nil
}

// CompleteTransferRequest represents a request to complete a fund transfer.
// Account types default to the transfer's own account type.
type CompleteTransferRequest struct {
	Notes           string `json:"notes,omitempty"`
	FromAccountType string `json:"from_account_type,omitempty"`
	ToAccountType   string `json:"to_account_type,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CompleteTransferRequest) ToUseCaseInput(transferID string) usecase.CompleteTransferInput {
	return usecase.CompleteTransferInput{
		TransferID:      transferID,
		Notes:           r.Notes,
		FromAccountType: domain.AccountType(r.FromAccountType),
		ToAccountType:   domain.AccountType(r.ToAccountType),
	}
}

// CompleteBatchRequest represents a request to complete every pending
// transfer of one group.
type CompleteBatchRequest struct {
	AccountType string `json:"account_type"`
	Currency    string `json:"currency"`
	Notes       string `json:"notes,omitempty"`
}

// GroupKey returns the group the batch targets.
func (r *CompleteBatchRequest) GroupKey() (domain.TransferGroupKey, error) {
	accountType := domain.AccountType(r.AccountType)
	if err := accountType.Validate(); err != nil {
		return domain.TransferGroupKey{}, err
	}
	currency, err := domain.ParseCurrency(r.Currency)
	if err != nil {
		return domain.TransferGroupKey{}, err
	}
	return domain.TransferGroupKey{AccountType: accountType, Currency: currency}, nil
}

func parseBusinessDate(s string) (time.Time, error) {
	if s == "" {
		return domain.DateOnly(time.Now().UTC()), nil
	}
	date, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return date, nil
}
