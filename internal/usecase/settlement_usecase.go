package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/infrastructure/metrics"
)

// SettlementUseCase turns settlement events into balance changes on the
// receiving branch account.
type SettlementUseCase struct {
	txManager TransactionManager
	accounts  *AccountUseCase
	ledger    *LedgerUseCase
	rates     RateResolver
	transfers *FundTransferUseCase
	outbox    outboxWriter
	retrier   Retrier
	obs       observer
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(
	txManager TransactionManager,
	accounts *AccountUseCase,
	ledger *LedgerUseCase,
	rates RateResolver,
	transfers *FundTransferUseCase,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
) *SettlementUseCase {
	return &SettlementUseCase{
		txManager: txManager,
		accounts:  accounts,
		ledger:    ledger,
		rates:     rates,
		transfers: transfers,
		outbox:    outboxWriter{repo: outboxRepo, idGen: idGen},
		obs:       newObserver(),
	}
}

// WithRetrier sets the retrier used around each transaction.
func (uc *SettlementUseCase) WithRetrier(r Retrier) *SettlementUseCase {
	uc.retrier = r
	return uc
}

// WithLogger sets the logger.
func (uc *SettlementUseCase) WithLogger(logger zerolog.Logger) *SettlementUseCase {
	uc.obs.logger = logger
	return uc
}

// WithMetrics sets the metrics.
func (uc *SettlementUseCase) WithMetrics(m *metrics.Metrics) *SettlementUseCase {
	uc.obs.metrics = m
	return uc
}

// SettlementResult is the entry an event produced and, for cross-branch
// events, the pending transfer that goes with it.
type SettlementResult struct {
	Entry    *domain.Entry
	Transfer *domain.FundTransfer
}

// Apply settles ev in its own transaction.
func (uc *SettlementUseCase) Apply(ctx context.Context, ev domain.SettlementEvent) (*SettlementResult, error) {
	start := time.Now()

	var result *SettlementResult
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		result, err = uc.ApplyTx(ctx, tx, ev)
		return err
	})
	uc.obs.observe("settlement.apply", start, err)
	if err != nil {
		uc.obs.logger.Warn().Err(err).
			Str("source_module", string(ev.SourceModule)).
			Str("source_id", ev.SourceID).
			Msg("settlement rejected")
		return nil, err
	}

	uc.recordApplied(result.Entry)
	return result, nil
}

// ApplyTx settles ev inside tx.
func (uc *SettlementUseCase) ApplyTx(ctx context.Context, tx Transaction, ev domain.SettlementEvent) (*SettlementResult, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	date := domain.DateOnly(ev.Date)

	// 1. Resolve the settlement account
	account, err := uc.accounts.lock(ctx, tx, ev.BranchID, ev.AccountType)
	if err != nil {
		return nil, err
	}

	// 2. A source settles at most once per branch
	if _, found, err := uc.ledger.FindBySource(ctx, tx, ev.BranchID, ev.SourceModule, ev.SourceID); err != nil {
		return nil, err
	} else if found {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrAlreadySettled, ev.SourceModule, ev.SourceID)
	}

	// 3. Resolve the rate of the event date
	rate, err := uc.rates.RateFor(ctx, date)
	if err != nil {
		return nil, err
	}

	// 4. Express the amount in the account currency
	conv, err := domain.Convert(ev.Amount, ev.Currency, account.Currency, rate)
	if err != nil {
		return nil, fmt.Errorf("settle %s %s into %s: %w", ev.SourceModule, ev.SourceID, account.ID, err)
	}

	// 5. Append the entry, which applies the delta
	entry := &domain.Entry{
		BranchID:            ev.BranchID,
		AccountType:         ev.AccountType,
		Date:                date,
		Direction:           ev.Direction,
		Amount:              conv.Amount,
		Currency:            account.Currency,
		OtherCurrencyAmount: conv.OtherAmount,
		ExchangeRate:        conv.Rate,
		Category:            ev.Category,
		Description:         ev.Description,
		SourceModule:        ev.SourceModule,
		SourceID:            ev.SourceID,
	}
	if _, err := uc.ledger.Append(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.outbox.emit(ctx, tx, domain.AggregateTypeEntry, entry.ID,
		domain.EventTypeEntryAppended, domain.EntryPayload(entry)); err != nil {
		return nil, err
	}

	// 6. Funds collected elsewhere are owed by the origin branch
	transfer, err := uc.transfers.CreateIfCrossBranch(ctx, tx, ev, account, entry)
	if err != nil {
		return nil, err
	}

	return &SettlementResult{Entry: entry, Transfer: transfer}, nil
}

// ReverseResult is what a reversal undid.
type ReverseResult struct {
	Entry            *domain.Entry
	DeletedTransfers []*domain.FundTransfer
}

// Reverse undoes the settlement of ref in its own transaction. Reversing a
// source that was never settled is a no-op and returns a nil Entry.
func (uc *SettlementUseCase) Reverse(ctx context.Context, ref domain.SourceRef) (*ReverseResult, error) {
	start := time.Now()

	var result *ReverseResult
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		result, err = uc.ReverseTx(ctx, tx, ref)
		return err
	})
	uc.obs.observe("settlement.reverse", start, err)
	if err != nil {
		return nil, err
	}

	uc.recordReversed(result.Entry)
	return result, nil
}

// ReverseTx undoes the settlement of ref inside tx. The stored amount is
// negated as is; the rate is never resolved again.
func (uc *SettlementUseCase) ReverseTx(ctx context.Context, tx Transaction, ref domain.SourceRef) (*ReverseResult, error) {
	entry, found, err := uc.ledger.FindBySource(ctx, tx, ref.BranchID, ref.Module, ref.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &ReverseResult{}, nil
	}

	removed, err := uc.ledger.Remove(ctx, tx, ref.BranchID, entry.ID)
	if err != nil {
		return nil, err
	}

	deleted, err := uc.transfers.deletePendingForSource(ctx, tx, ref.Module, ref.ID)
	if err != nil {
		return nil, err
	}

	if err := uc.outbox.emit(ctx, tx, domain.AggregateTypeEntry, removed.ID,
		domain.EventTypeEntryRemoved, domain.EntryPayload(removed)); err != nil {
		return nil, err
	}

	return &ReverseResult{Entry: removed, DeletedTransfers: deleted}, nil
}

func (uc *SettlementUseCase) recordApplied(entry *domain.Entry) {
	if uc.obs.metrics != nil {
		uc.obs.metrics.SettlementsApplied.WithLabelValues(string(entry.SourceModule), string(entry.Direction)).Inc()
		amount, _ := entry.Amount.Float64()
		uc.obs.metrics.SettledAmount.WithLabelValues(string(entry.Currency)).Observe(amount)
	}
	uc.obs.logger.Info().
		Str("entry_id", entry.ID).
		Str("account_id", entry.AccountID).
		Str("direction", string(entry.Direction)).
		Str("amount", entry.Amount.String()).
		Str("balance", entry.AccountCurrentBalance.String()).
		Msg("settlement applied")
}

func (uc *SettlementUseCase) recordReversed(entry *domain.Entry) {
	if entry == nil {
		return
	}
	if uc.obs.metrics != nil {
		uc.obs.metrics.SettlementsReversed.WithLabelValues(string(entry.SourceModule)).Inc()
	}
	uc.obs.logger.Info().
		Str("entry_id", entry.ID).
		Str("account_id", entry.AccountID).
		Str("amount", entry.Amount.String()).
		Msg("settlement reversed")
}
