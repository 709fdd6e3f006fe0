package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrInvalidAccountType   = errors.New("invalid account type")
	ErrInvalidBranch        = errors.New("invalid branch")

	// Settlement errors
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidDirection = errors.New("direction must be credit or debit")
	ErrCurrencyMismatch = errors.New("currency does not match account currency")
	ErrNoExchangeRate   = errors.New("no exchange rate available for date")
	ErrAlreadySettled   = errors.New("source is already settled")
	ErrInvalidSource    = errors.New("settlement source is required")

	// Ledger errors
	ErrEntryNotFound = errors.New("entry not found")

	// Exchange rate errors
	ErrRateNotFound      = errors.New("exchange rate not found")
	ErrRateAlreadyExists = errors.New("exchange rate already exists for date")
	ErrInvalidRate       = errors.New("exchange rate must be positive")

	// Payment errors
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrInvalidTransition = errors.New("invalid payment status transition")
	ErrInvalidLinkKind   = errors.New("invalid payment link kind")

	// Expense errors
	ErrExpenseNotFound = errors.New("expense not found")

	// Fund transfer errors
	ErrTransferNotFound         = errors.New("fund transfer not found")
	ErrTransferAlreadyCompleted = errors.New("fund transfer already completed")
	ErrSameBranch               = errors.New("cannot transfer within the same branch")
)
