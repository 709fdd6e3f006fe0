package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/branchledger/internal/domain"
)

// LedgerUseCase keeps the append-only history of balance movements in step
// with the account balances.
type LedgerUseCase struct {
	accounts  *AccountUseCase
	entryRepo EntryRepository
	idGen     IDGenerator
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(accounts *AccountUseCase, entryRepo EntryRepository, idGen IDGenerator) *LedgerUseCase {
	return &LedgerUseCase{
		accounts:  accounts,
		entryRepo: entryRepo,
		idGen:     idGen,
	}
}

// Append applies the entry's signed amount to its account and stores the
// entry with the post-movement balance snapshot. It returns the entry ID.
func (uc *LedgerUseCase) Append(ctx context.Context, tx Transaction, entry *domain.Entry) (string, error) {
	if err := entry.Validate(); err != nil {
		return "", err
	}

	// 1. Guard the account currency before touching the balance
	account, err := uc.accounts.lock(ctx, tx, entry.BranchID, entry.AccountType)
	if err != nil {
		return "", err
	}
	if account.Currency != entry.Currency {
		return "", fmt.Errorf("%w: entry in %s for %s account %s", domain.ErrCurrencyMismatch, entry.Currency, account.Currency, account.ID)
	}

	// 2. Apply the delta
	now := time.Now().UTC()
	signed := entry.SignedAmount()
	account, err = uc.accounts.ApplyDelta(ctx, tx, entry.BranchID, entry.AccountType, signed, now)
	if err != nil {
		return "", err
	}

	// 3. Store the entry with the snapshot read back from the account
	entry.ID = uc.idGen.Generate()
	entry.AccountID = account.ID
	entry.Date = domain.DateOnly(entry.Date)
	entry.AccountPreviousBalance = account.Balance.Sub(signed)
	entry.AccountCurrentBalance = account.Balance
	entry.AccountVersion = account.Version
	entry.CreatedAt = now

	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return "", err
	}

	return entry.ID, nil
}

// FindBySource returns the entry a source event produced in branchID.
func (uc *LedgerUseCase) FindBySource(ctx context.Context, tx Transaction, branchID string, module domain.SourceModule, sourceID string) (*domain.Entry, bool, error) {
	entry, err := uc.entryRepo.FindBySource(ctx, tx, branchID, module, sourceID)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry, true, nil
}

// Remove undoes an entry: the exact negation of its signed amount goes back
// through the account, later snapshots on the same account are re-based by the
// same delta, and the entry is deleted.
func (uc *LedgerUseCase) Remove(ctx context.Context, tx Transaction, branchID, entryID string) (*domain.Entry, error) {
	entry, err := uc.entryRepo.GetByID(ctx, tx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.BranchID != branchID {
		return nil, domain.ErrEntryNotFound
	}

	delta := entry.SignedAmount().Neg()

	if _, err := uc.accounts.ApplyDelta(ctx, tx, entry.BranchID, entry.AccountType, delta, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := uc.entryRepo.ShiftSnapshotsAfter(ctx, tx, entry.AccountID, entry.Sequence, delta); err != nil {
		return nil, err
	}

	if err := uc.entryRepo.Delete(ctx, tx, entry.ID); err != nil {
		return nil, err
	}

	return entry, nil
}

// HistoryInput represents input for listing a branch's movements.
type HistoryInput struct {
	BranchID string
	Limit    int
	Offset   int
}

// History lists a branch's entries in insertion order.
func (uc *LedgerUseCase) History(ctx context.Context, input HistoryInput) ([]*domain.Entry, error) {
	limit, offset := domain.ClampPage(input.Limit, input.Offset)
	return uc.entryRepo.ListByBranch(ctx, input.BranchID, limit, offset)
}
