package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
)

// ReconciliationUseCase checks account balances against the entry history.
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	entryRepo   EntryRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(accountRepo AccountRepository, entryRepo EntryRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AccountID           string
	BranchID            string
	AccountType         domain.AccountType
	Currency            domain.Currency
	RecordedBalance     decimal.Decimal
	ProvisioningBalance decimal.Decimal
	EntrySum            decimal.Decimal
	CalculatedBalance   decimal.Decimal
	Difference          decimal.Decimal
	LatestSnapshot      decimal.NullDecimal
	SnapshotMatches     bool
	IsReconciled        bool
	LastChecked         time.Time
}

// ReconcileAccount compares an account balance with its provisioning balance
// plus the signed sum of its entries, and with the latest entry snapshot.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	sum, err := uc.entryRepo.SumByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	calculated := account.ProvisioningBalance.Add(sum)
	result := &ReconciliationResult{
		AccountID:           account.ID,
		BranchID:            account.BranchID,
		AccountType:         account.Type,
		Currency:            account.Currency,
		RecordedBalance:     account.Balance,
		ProvisioningBalance: account.ProvisioningBalance,
		EntrySum:            sum,
		CalculatedBalance:   calculated,
		Difference:          account.Balance.Sub(calculated),
		LastChecked:         time.Now().UTC(),
	}

	latest, err := uc.entryRepo.LatestByAccount(ctx, accountID)
	switch {
	case err == nil:
		result.LatestSnapshot = decimal.NewNullDecimal(latest.AccountCurrentBalance)
		result.SnapshotMatches = latest.AccountCurrentBalance.Equal(account.Balance)
	case errors.Is(err, domain.ErrEntryNotFound):
		result.SnapshotMatches = account.Balance.Equal(account.ProvisioningBalance)
	default:
		return nil, err
	}

	result.IsReconciled = result.Difference.IsZero() && result.SnapshotMatches
	return result, nil
}

// ReconcileBranch reconciles the accounts of a branch, or every account when
// branchID is empty.
func (uc *ReconciliationUseCase) ReconcileBranch(ctx context.Context, branchID string) ([]*ReconciliationResult, error) {
	accounts, err := uc.accountRepo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	results := make([]*ReconciliationResult, 0, len(accounts))
	for _, account := range accounts {
		result, err := uc.ReconcileAccount(ctx, account.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile account %s: %w", account.ID, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	CheckedAt          time.Time
}

// GenerateReport reconciles every account of branchID (all when empty).
func (uc *ReconciliationUseCase) GenerateReport(ctx context.Context, branchID string) (*ReconciliationReport, error) {
	results, err := uc.ReconcileBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		TotalAccounts: len(results),
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     time.Now().UTC(),
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
