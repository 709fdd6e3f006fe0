package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
)

// AccountUseCase owns the per-branch account balances.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	logger      zerolog.Logger
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(txManager TransactionManager, accountRepo AccountRepository) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		logger:      zerolog.Nop(),
	}
}

// WithLogger sets the logger.
func (uc *AccountUseCase) WithLogger(logger zerolog.Logger) *AccountUseCase {
	uc.logger = logger
	return uc
}

// Provision creates every catalog account that does not exist yet. Existing
// accounts keep their balance. It returns the number of accounts created.
func (uc *AccountUseCase) Provision(ctx context.Context, catalog domain.Catalog) (int, error) {
	created := 0

	err := runInTx(ctx, uc.txManager, nil, func(ctx context.Context, tx Transaction) error {
		created = 0
		now := time.Now().UTC()

		for _, spec := range catalog.Accounts {
			id := domain.AccountID(spec.BranchID, spec.Type)

			existing, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, id)
			if err == nil {
				if existing.Currency != spec.Currency {
					return fmt.Errorf("%w: %s is %s, catalog lists %s", domain.ErrCurrencyMismatch, id, existing.Currency, spec.Currency)
				}
				continue
			}
			if !errors.Is(err, domain.ErrAccountNotFound) {
				return err
			}

			account := &domain.Account{
				ID:                  id,
				BranchID:            spec.BranchID,
				Type:                spec.Type,
				Name:                fmt.Sprintf("%s %s", spec.BranchID, spec.Type),
				Currency:            spec.Currency,
				Balance:             spec.OpeningBalance,
				ProvisioningBalance: spec.OpeningBalance,
				CreatedAt:           now,
				LastActivityAt:      now,
			}
			if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
				return err
			}
			created++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	uc.logger.Info().Int("created", created).Int("catalog", len(catalog.Accounts)).Msg("accounts provisioned")
	return created, nil
}

// GetAccount returns the account of (branchID, accountType).
func (uc *AccountUseCase) GetAccount(ctx context.Context, branchID string, accountType domain.AccountType) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, domain.AccountID(branchID, accountType))
}

// ListAccounts lists the accounts of a branch, or all accounts when branchID is empty.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, branchID string) ([]*domain.Account, error) {
	return uc.accountRepo.ListByBranch(ctx, branchID)
}

// ApplyDelta adds a signed amount to the account balance inside tx and
// returns the updated account. Only the ledger calls it, in the same
// transaction that stores the matching entry.
func (uc *AccountUseCase) ApplyDelta(ctx context.Context, tx Transaction, branchID string, accountType domain.AccountType, delta decimal.Decimal, at time.Time) (*domain.Account, error) {
	account, err := uc.lock(ctx, tx, branchID, accountType)
	if err != nil {
		return nil, err
	}

	account.Balance = account.ApplyDelta(delta)
	account.Version++
	account.LastActivityAt = at

	if err := uc.accountRepo.UpdateBalance(ctx, tx, account.ID, account.Balance, account.Version, at); err != nil {
		return nil, err
	}

	return account, nil
}

func (uc *AccountUseCase) lock(ctx context.Context, tx Transaction, branchID string, accountType domain.AccountType) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, domain.AccountID(branchID, accountType))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, domain.AccountID(branchID, accountType))
		}
		return nil, err
	}
	return account, nil
}
