package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/infrastructure/metrics"
)

// FundTransferUseCase records money collected at one branch on behalf of
// another and settles it between the two branches later.
type FundTransferUseCase struct {
	txManager    TransactionManager
	accounts     *AccountUseCase
	ledger       *LedgerUseCase
	transferRepo FundTransferRepository
	outbox       outboxWriter
	idGen        IDGenerator
	retrier      Retrier
	obs          observer
}

// NewFundTransferUseCase creates a new FundTransferUseCase.
func NewFundTransferUseCase(
	txManager TransactionManager,
	accounts *AccountUseCase,
	ledger *LedgerUseCase,
	transferRepo FundTransferRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
) *FundTransferUseCase {
	return &FundTransferUseCase{
		txManager:    txManager,
		accounts:     accounts,
		ledger:       ledger,
		transferRepo: transferRepo,
		outbox:       outboxWriter{repo: outboxRepo, idGen: idGen},
		idGen:        idGen,
		obs:          newObserver(),
	}
}

// WithRetrier sets the retrier used around each transaction.
func (uc *FundTransferUseCase) WithRetrier(r Retrier) *FundTransferUseCase {
	uc.retrier = r
	return uc
}

// WithLogger sets the logger.
func (uc *FundTransferUseCase) WithLogger(logger zerolog.Logger) *FundTransferUseCase {
	uc.obs.logger = logger
	return uc
}

// WithMetrics sets the metrics.
func (uc *FundTransferUseCase) WithMetrics(m *metrics.Metrics) *FundTransferUseCase {
	uc.obs.metrics = m
	return uc
}

// CreateIfCrossBranch records a pending transfer from the event's origin
// branch to its settlement branch. It returns nil when the event settled in
// the branch that collected it. entry is the settlement entry just appended
// to account.
func (uc *FundTransferUseCase) CreateIfCrossBranch(ctx context.Context, tx Transaction, ev domain.SettlementEvent, account *domain.Account, entry *domain.Entry) (*domain.FundTransfer, error) {
	if !ev.IsCrossBranch() {
		return nil, nil
	}

	amountUSD := entry.Amount
	if entry.Currency != domain.CurrencyUSD {
		amountUSD = entry.OtherCurrencyAmount.Decimal
	}

	transfer := &domain.FundTransfer{
		ID:               uc.idGen.Generate(),
		FromBranchID:     ev.OriginBranchID,
		ToBranchID:       ev.BranchID,
		AccountType:      account.Type,
		Amount:           entry.Amount,
		Currency:         account.Currency,
		OriginalAmount:   ev.Amount,
		OriginalCurrency: ev.Currency,
		AmountUSD:        amountUSD,
		ExchangeRate:     entry.ExchangeRate,
		SourceModule:     ev.SourceModule,
		SourceID:         ev.SourceID,
		Status:           domain.FundTransferPending,
		CreatedAt:        time.Now().UTC(),
	}
	if err := transfer.Validate(); err != nil {
		return nil, err
	}

	if err := uc.transferRepo.Create(ctx, tx, transfer); err != nil {
		return nil, err
	}

	if err := uc.outbox.emit(ctx, tx, domain.AggregateTypeFundTransfer, transfer.ID,
		domain.EventTypeFundTransferCreated, domain.FundTransferPayload(transfer)); err != nil {
		return nil, err
	}

	if uc.obs.metrics != nil {
		uc.obs.metrics.FundTransfersCreated.Inc()
	}

	return transfer, nil
}

// CompleteTransferInput represents input for completing a transfer.
// Account types default to the transfer's own account type.
type CompleteTransferInput struct {
	TransferID      string
	Notes           string
	FromAccountType domain.AccountType
	ToAccountType   domain.AccountType
}

// CompleteTransferResult is the outcome of a completion.
type CompleteTransferResult struct {
	Transfer         *domain.FundTransfer
	EgressEntry      *domain.Entry
	IngressEntry     *domain.Entry
	AlreadyCompleted bool
}

// Complete moves the transfer amount out of the origin branch and into the
// settlement branch. Completing an already completed transfer is reported,
// not repeated.
func (uc *FundTransferUseCase) Complete(ctx context.Context, input CompleteTransferInput) (*CompleteTransferResult, error) {
	start := time.Now()

	var result *CompleteTransferResult
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		result, err = uc.complete(ctx, tx, input)
		return err
	})
	uc.obs.observe("fund_transfer.complete", start, err)
	if err != nil {
		return nil, err
	}

	if result.AlreadyCompleted {
		uc.obs.logger.Info().Str("transfer_id", input.TransferID).Msg("fund transfer already completed")
		return result, nil
	}

	if uc.obs.metrics != nil {
		uc.obs.metrics.FundTransfersCompleted.Inc()
	}
	uc.obs.logger.Info().
		Str("transfer_id", result.Transfer.ID).
		Str("from", result.Transfer.FromBranchID).
		Str("to", result.Transfer.ToBranchID).
		Str("amount", result.Transfer.Amount.String()).
		Str("currency", string(result.Transfer.Currency)).
		Msg("fund transfer completed")

	return result, nil
}

func (uc *FundTransferUseCase) complete(ctx context.Context, tx Transaction, input CompleteTransferInput) (*CompleteTransferResult, error) {
	if err := domain.ValidateDescription(input.Notes); err != nil {
		return nil, err
	}

	transfer, err := uc.transferRepo.GetByIDForUpdate(ctx, tx, input.TransferID)
	if err != nil {
		return nil, err
	}
	if transfer.IsCompleted() {
		return &CompleteTransferResult{Transfer: transfer, AlreadyCompleted: true}, nil
	}

	fromType := transfer.AccountType
	if input.FromAccountType != "" {
		fromType = input.FromAccountType
	}
	toType := transfer.AccountType
	if input.ToAccountType != "" {
		toType = input.ToAccountType
	}

	// 1. Lock both accounts in sorted ID order (deadlock prevention)
	from, to, err := uc.lockPair(ctx, tx, transfer.FromBranchID, fromType, transfer.ToBranchID, toType)
	if err != nil {
		return nil, err
	}

	// 2. Both sides must hold the transfer currency
	if from.Currency != transfer.Currency || to.Currency != transfer.Currency {
		return nil, fmt.Errorf("%w: transfer %s is %s, accounts %s and %s are %s and %s",
			domain.ErrCurrencyMismatch, transfer.ID, transfer.Currency, from.ID, to.ID, from.Currency, to.Currency)
	}

	// 3. Egress from origin, ingress to settlement branch, replaying the stored rate
	now := time.Now().UTC()
	other := transfer.OtherCurrencyAmount()

	egress := &domain.Entry{
		BranchID:            transfer.FromBranchID,
		AccountType:         fromType,
		Date:                now,
		Direction:           domain.DirectionDebit,
		Amount:              transfer.Amount,
		Currency:            transfer.Currency,
		OtherCurrencyAmount: other,
		ExchangeRate:        transfer.ExchangeRate,
		Category:            FundTransferCategory,
		Description:         fmt.Sprintf("fund transfer to %s", transfer.ToBranchID),
		SourceModule:        domain.SourceFundTransfer,
		SourceID:            transfer.ID,
	}
	if _, err := uc.ledger.Append(ctx, tx, egress); err != nil {
		return nil, err
	}

	ingress := &domain.Entry{
		BranchID:            transfer.ToBranchID,
		AccountType:         toType,
		Date:                now,
		Direction:           domain.DirectionCredit,
		Amount:              transfer.Amount,
		Currency:            transfer.Currency,
		OtherCurrencyAmount: other,
		ExchangeRate:        transfer.ExchangeRate,
		Category:            FundTransferCategory,
		Description:         fmt.Sprintf("fund transfer from %s", transfer.FromBranchID),
		SourceModule:        domain.SourceFundTransfer,
		SourceID:            transfer.ID,
	}
	if _, err := uc.ledger.Append(ctx, tx, ingress); err != nil {
		return nil, err
	}

	// 4. Mark completed
	if err := transfer.MarkCompleted(from.ID, to.ID, input.Notes, now); err != nil {
		return nil, err
	}
	if err := uc.transferRepo.Update(ctx, tx, transfer); err != nil {
		return nil, err
	}

	if err := uc.outbox.emit(ctx, tx, domain.AggregateTypeFundTransfer, transfer.ID,
		domain.EventTypeFundTransferCompleted, domain.FundTransferPayload(transfer)); err != nil {
		return nil, err
	}

	return &CompleteTransferResult{Transfer: transfer, EgressEntry: egress, IngressEntry: ingress}, nil
}

func (uc *FundTransferUseCase) lockPair(ctx context.Context, tx Transaction, fromBranch string, fromType domain.AccountType, toBranch string, toType domain.AccountType) (*domain.Account, *domain.Account, error) {
	type key struct {
		branch string
		typ    domain.AccountType
	}
	keys := []key{{fromBranch, fromType}, {toBranch, toType}}
	sort.Slice(keys, func(i, j int) bool {
		return domain.AccountID(keys[i].branch, keys[i].typ) < domain.AccountID(keys[j].branch, keys[j].typ)
	})

	locked := make(map[string]*domain.Account, 2)
	for _, k := range keys {
		account, err := uc.accounts.lock(ctx, tx, k.branch, k.typ)
		if err != nil {
			return nil, nil, err
		}
		locked[account.ID] = account
	}

	return locked[domain.AccountID(fromBranch, fromType)], locked[domain.AccountID(toBranch, toType)], nil
}

// BatchFailure is a transfer a batch could not complete.
type BatchFailure struct {
	TransferID string
	Err        error
}

// BatchResult is the outcome of a batch completion.
type BatchResult struct {
	Completed []*domain.FundTransfer
	Failed    []BatchFailure
}

// CompleteBatch completes every pending transfer of the group, one
// transaction per transfer. A failing transfer does not stop the others.
func (uc *FundTransferUseCase) CompleteBatch(ctx context.Context, key domain.TransferGroupKey, notes string) (*BatchResult, error) {
	pending, err := uc.transferRepo.List(ctx, FundTransferFilter{
		Status: domain.FundTransferPending,
		Group:  &key,
	})
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, t := range pending {
		res, err := uc.Complete(ctx, CompleteTransferInput{TransferID: t.ID, Notes: notes})
		if err != nil {
			uc.obs.logger.Warn().Err(err).Str("transfer_id", t.ID).Msg("batch completion failed for transfer")
			result.Failed = append(result.Failed, BatchFailure{TransferID: t.ID, Err: err})
			continue
		}
		if !res.AlreadyCompleted {
			result.Completed = append(result.Completed, res.Transfer)
		}
	}

	uc.obs.logger.Info().
		Str("account_type", string(key.AccountType)).
		Str("currency", string(key.Currency)).
		Int("completed", len(result.Completed)).
		Int("failed", len(result.Failed)).
		Msg("fund transfer batch processed")

	return result, nil
}

// Delete removes a pending transfer. Completed transfers are kept.
func (uc *FundTransferUseCase) Delete(ctx context.Context, id string) error {
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		transfer, err := uc.transferRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if transfer.IsCompleted() {
			return domain.ErrTransferAlreadyCompleted
		}
		return uc.delete(ctx, tx, transfer)
	})
	if err != nil {
		return err
	}

	if uc.obs.metrics != nil {
		uc.obs.metrics.FundTransfersDeleted.Inc()
	}
	return nil
}

func (uc *FundTransferUseCase) delete(ctx context.Context, tx Transaction, transfer *domain.FundTransfer) error {
	if err := uc.transferRepo.Delete(ctx, tx, transfer.ID); err != nil {
		return err
	}
	return uc.outbox.emit(ctx, tx, domain.AggregateTypeFundTransfer, transfer.ID,
		domain.EventTypeFundTransferDeleted, domain.FundTransferPayload(transfer))
}

// deletePendingForSource removes the pending transfers linked to a source
// event. Completed transfers stay.
func (uc *FundTransferUseCase) deletePendingForSource(ctx context.Context, tx Transaction, module domain.SourceModule, sourceID string) ([]*domain.FundTransfer, error) {
	pending, err := uc.transferRepo.ListPendingBySource(ctx, tx, module, sourceID)
	if err != nil {
		return nil, err
	}
	for _, t := range pending {
		if err := uc.delete(ctx, tx, t); err != nil {
			return nil, err
		}
	}
	return pending, nil
}

// GetTransfer retrieves a transfer by ID.
func (uc *FundTransferUseCase) GetTransfer(ctx context.Context, id string) (*domain.FundTransfer, error) {
	return uc.transferRepo.GetByID(ctx, id)
}

// ListTransfers lists transfers matching filter.
func (uc *FundTransferUseCase) ListTransfers(ctx context.Context, filter FundTransferFilter) ([]*domain.FundTransfer, error) {
	filter.Limit, filter.Offset = domain.ClampPage(filter.Limit, filter.Offset)
	return uc.transferRepo.List(ctx, filter)
}

// PendingGroup summarizes the pending transfers of one batch key.
type PendingGroup struct {
	Key      domain.TransferGroupKey
	Count    int
	Total    decimal.Decimal
	TotalUSD decimal.Decimal
}

// PendingSummary groups pending transfers by account type and currency.
func (uc *FundTransferUseCase) PendingSummary(ctx context.Context) ([]PendingGroup, error) {
	pending, err := uc.transferRepo.List(ctx, FundTransferFilter{Status: domain.FundTransferPending})
	if err != nil {
		return nil, err
	}

	groups := make(map[domain.TransferGroupKey]*PendingGroup)
	for _, t := range pending {
		g, ok := groups[t.GroupKey()]
		if !ok {
			g = &PendingGroup{Key: t.GroupKey(), Total: decimal.Zero, TotalUSD: decimal.Zero}
			groups[t.GroupKey()] = g
		}
		g.Count++
		g.Total = g.Total.Add(t.Amount)
		g.TotalUSD = g.TotalUSD.Add(t.AmountUSD)
	}

	summary := make([]PendingGroup, 0, len(groups))
	for _, g := range groups {
		summary = append(summary, *g)
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].Key.AccountType != summary[j].Key.AccountType {
			return summary[i].Key.AccountType < summary[j].Key.AccountType
		}
		return summary[i].Key.Currency < summary[j].Key.Currency
	})

	return summary, nil
}
