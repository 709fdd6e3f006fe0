package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

var (
	_ usecase.AccountRepository      = (*AccountRepository)(nil)
	_ usecase.EntryRepository        = (*EntryRepository)(nil)
	_ usecase.ExchangeRateRepository = (*ExchangeRateRepository)(nil)
	_ usecase.PaymentRepository      = (*PaymentRepository)(nil)
	_ usecase.ExpenseRepository      = (*ExpenseRepository)(nil)
	_ usecase.FundTransferRepository = (*FundTransferRepository)(nil)
	_ usecase.OutboxRepository       = (*OutboxRepository)(nil)
	_ usecase.TransactionManager     = (*TxManager)(nil)
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

func (r *AccountRepository) Create(_ context.Context, _ usecase.Transaction, account *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.state.accounts[account.ID]; ok {
		return domain.ErrAccountAlreadyExists
	}
	r.store.state.accounts[account.ID] = *account
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	account, ok := r.store.state.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &account, nil
}

func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *AccountRepository) UpdateBalance(_ context.Context, _ usecase.Transaction, id string, balance decimal.Decimal, version int64, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	account, ok := r.store.state.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.Balance = balance
	account.Version = version
	account.LastActivityAt = at
	r.store.state.accounts[id] = account
	return nil
}

func (r *AccountRepository) ListByBranch(_ context.Context, branchID string) ([]*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var accounts []*domain.Account
	for _, a := range r.store.state.accounts {
		if branchID != "" && a.BranchID != branchID {
			continue
		}
		account := a
		accounts = append(accounts, &account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	store *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(store *Store) *EntryRepository {
	return &EntryRepository{store: store}
}

func (r *EntryRepository) Create(_ context.Context, _ usecase.Transaction, entry *domain.Entry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.state.sequence++
	entry.Sequence = r.store.state.sequence
	r.store.state.entries[entry.ID] = *entry
	return nil
}

func (r *EntryRepository) GetByID(_ context.Context, _ usecase.Transaction, id string) (*domain.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entry, ok := r.store.state.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return &entry, nil
}

func (r *EntryRepository) FindBySource(_ context.Context, _ usecase.Transaction, branchID string, module domain.SourceModule, sourceID string) (*domain.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var found *domain.Entry
	for _, e := range r.store.state.entries {
		if e.BranchID == branchID && e.SourceModule == module && e.SourceID == sourceID {
			if found == nil || e.Sequence < found.Sequence {
				entry := e
				found = &entry
			}
		}
	}
	if found == nil {
		return nil, domain.ErrEntryNotFound
	}
	return found, nil
}

func (r *EntryRepository) Delete(_ context.Context, _ usecase.Transaction, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.state.entries[id]; !ok {
		return domain.ErrEntryNotFound
	}
	delete(r.store.state.entries, id)
	return nil
}

func (r *EntryRepository) ShiftSnapshotsAfter(_ context.Context, _ usecase.Transaction, accountID string, sequence int64, delta decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, e := range r.store.state.entries {
		if e.AccountID != accountID || e.Sequence <= sequence {
			continue
		}
		e.AccountPreviousBalance = e.AccountPreviousBalance.Add(delta)
		e.AccountCurrentBalance = e.AccountCurrentBalance.Add(delta)
		r.store.state.entries[id] = e
	}
	return nil
}

func (r *EntryRepository) ListByBranch(_ context.Context, branchID string, limit, offset int) ([]*domain.Entry, error) {
	entries := r.filter(func(e domain.Entry) bool { return e.BranchID == branchID })
	return paginate(entries, limit, offset), nil
}

func (r *EntryRepository) SumByAccount(_ context.Context, accountID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range r.filter(func(e domain.Entry) bool { return e.AccountID == accountID }) {
		sum = sum.Add(e.SignedAmount())
	}
	return sum, nil
}

func (r *EntryRepository) LatestByAccount(_ context.Context, accountID string) (*domain.Entry, error) {
	entries := r.filter(func(e domain.Entry) bool { return e.AccountID == accountID })
	if len(entries) == 0 {
		return nil, domain.ErrEntryNotFound
	}
	return entries[len(entries)-1], nil
}

// filter returns matching entries in sequence order.
func (r *EntryRepository) filter(match func(domain.Entry) bool) []*domain.Entry {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var entries []*domain.Entry
	for _, e := range r.store.state.entries {
		if match(e) {
			entry := e
			entries = append(entries, &entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Sequence < entries[j].Sequence })
	return entries
}

// ExchangeRateRepository implements usecase.ExchangeRateRepository.
type ExchangeRateRepository struct {
	store *Store
}

// NewExchangeRateRepository creates a new ExchangeRateRepository.
func NewExchangeRateRepository(store *Store) *ExchangeRateRepository {
	return &ExchangeRateRepository{store: store}
}

func rateKey(date time.Time) string {
	return domain.DateOnly(date).Format(domain.DateLayout)
}

func (r *ExchangeRateRepository) Create(_ context.Context, rate *domain.ExchangeRate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := rateKey(rate.Date)
	if _, ok := r.store.rates[key]; ok {
		return domain.ErrRateAlreadyExists
	}
	r.store.rates[key] = *rate
	return nil
}

func (r *ExchangeRateRepository) Delete(_ context.Context, date time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := rateKey(date)
	if _, ok := r.store.rates[key]; !ok {
		return domain.ErrRateNotFound
	}
	delete(r.store.rates, key)
	return nil
}

func (r *ExchangeRateRepository) FindOnOrBefore(_ context.Context, date time.Time) (*domain.ExchangeRate, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	day := domain.DateOnly(date)
	var found *domain.ExchangeRate
	for _, rate := range r.store.rates {
		if rate.Date.After(day) {
			continue
		}
		if found == nil || rate.Date.After(found.Date) {
			candidate := rate
			found = &candidate
		}
	}
	if found == nil {
		return nil, domain.ErrRateNotFound
	}
	return found, nil
}

func (r *ExchangeRateRepository) List(_ context.Context, limit, offset int) ([]*domain.ExchangeRate, error) {
	r.store.mu.RLock()
	rates := make([]*domain.ExchangeRate, 0, len(r.store.rates))
	for _, rate := range r.store.rates {
		candidate := rate
		rates = append(rates, &candidate)
	}
	r.store.mu.RUnlock()

	sort.Slice(rates, func(i, j int) bool { return rates[i].Date.After(rates[j].Date) })
	return paginate(rates, limit, offset), nil
}

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct {
	store *Store
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(store *Store) *PaymentRepository {
	return &PaymentRepository{store: store}
}

func (r *PaymentRepository) Create(_ context.Context, _ usecase.Transaction, payment *domain.Payment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.state.payments[payment.ID] = *payment
	return nil
}

func (r *PaymentRepository) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	payment, ok := r.store.state.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *PaymentRepository) Update(_ context.Context, _ usecase.Transaction, payment *domain.Payment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.state.payments[payment.ID]; !ok {
		return domain.ErrPaymentNotFound
	}
	r.store.state.payments[payment.ID] = *payment
	return nil
}

func (r *PaymentRepository) Delete(_ context.Context, _ usecase.Transaction, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.state.payments[id]; !ok {
		return domain.ErrPaymentNotFound
	}
	delete(r.store.state.payments, id)
	return nil
}

func (r *PaymentRepository) List(_ context.Context, status domain.PaymentStatus, limit, offset int) ([]*domain.Payment, error) {
	r.store.mu.RLock()
	var payments []*domain.Payment
	for _, p := range r.store.state.payments {
		if status != "" && p.Status != status {
			continue
		}
		payment := p
		payments = append(payments, &payment)
	}
	r.store.mu.RUnlock()

	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return paginate(payments, limit, offset), nil
}

// ExpenseRepository implements usecase.ExpenseRepository.
type ExpenseRepository struct {
	store *Store
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(store *Store) *ExpenseRepository {
	return &ExpenseRepository{store: store}
}

func (r *ExpenseRepository) Create(_ context.Context, _ usecase.Transaction, expense *domain.Expense) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.state.expenses[expense.ID] = *expense
	return nil
}

func (r *ExpenseRepository) GetByID(_ context.Context, id string) (*domain.Expense, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	expense, ok := r.store.state.expenses[id]
	if !ok {
		return nil, domain.ErrExpenseNotFound
	}
	return &expense, nil
}

func (r *ExpenseRepository) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.Expense, error) {
	return r.GetByID(ctx, id)
}

func (r *ExpenseRepository) Update(_ context.Context, _ usecase.Transaction, expense *domain.Expense) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.state.expenses[expense.ID]; !ok {
		return domain.ErrExpenseNotFound
	}
	r.store.state.expenses[expense.ID] = *expense
	return nil
}

func (r *ExpenseRepository) Delete(_ context.Context, _ usecase.Transaction, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.state.expenses[id]; !ok {
		return domain.ErrExpenseNotFound
	}
	delete(r.store.state.expenses, id)
	return nil
}

// FundTransferRepository implements usecase.FundTransferRepository.
type FundTransferRepository struct {
	store *Store
}

// NewFundTransferRepository creates a new FundTransferRepository.
func NewFundTransferRepository(store *Store) *FundTransferRepository {
	return &FundTransferRepository{store: store}
}

func (r *FundTransferRepository) Create(_ context.Context, _ usecase.Transaction, transfer *domain.FundTransfer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.state.transfers[transfer.ID] = *transfer
	return nil
}

func (r *FundTransferRepository) GetByID(_ context.Context, id string) (*domain.FundTransfer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	transfer, ok := r.store.state.transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	return &transfer, nil
}

func (r *FundTransferRepository) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.FundTransfer, error) {
	return r.GetByID(ctx, id)
}

func (r *FundTransferRepository) Update(_ context.Context, _ usecase.Transaction, transfer *domain.FundTransfer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.state.transfers[transfer.ID]; !ok {
		return domain.ErrTransferNotFound
	}
	r.store.state.transfers[transfer.ID] = *transfer
	return nil
}

func (r *FundTransferRepository) Delete(_ context.Context, _ usecase.Transaction, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.state.transfers[id]; !ok {
		return domain.ErrTransferNotFound
	}
	delete(r.store.state.transfers, id)
	return nil
}

func (r *FundTransferRepository) ListPendingBySource(_ context.Context, _ usecase.Transaction, module domain.SourceModule, sourceID string) ([]*domain.FundTransfer, error) {
	return r.filter(func(t domain.FundTransfer) bool {
		return t.Status == domain.FundTransferPending && t.SourceModule == module && t.SourceID == sourceID
	}), nil
}

func (r *FundTransferRepository) List(_ context.Context, filter usecase.FundTransferFilter) ([]*domain.FundTransfer, error) {
	transfers := r.filter(func(t domain.FundTransfer) bool {
		if filter.Status != "" && t.Status != filter.Status {
			return false
		}
		if filter.Group != nil && t.GroupKey() != *filter.Group {
			return false
		}
		return true
	})
	return paginate(transfers, filter.Limit, filter.Offset), nil
}

// filter returns matching transfers, oldest first.
func (r *FundTransferRepository) filter(match func(domain.FundTransfer) bool) []*domain.FundTransfer {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var transfers []*domain.FundTransfer
	for _, t := range r.store.state.transfers {
		if match(t) {
			transfer := t
			transfers = append(transfers, &transfer)
		}
	}
	sort.Slice(transfers, func(i, j int) bool {
		if !transfers[i].CreatedAt.Equal(transfers[j].CreatedAt) {
			return transfers[i].CreatedAt.Before(transfers[j].CreatedAt)
		}
		return transfers[i].ID < transfers[j].ID
	})
	return transfers
}

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

func (r *OutboxRepository) Create(_ context.Context, _ usecase.Transaction, event *domain.OutboxEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.state.outbox[event.ID] = *event
	return nil
}

func (r *OutboxRepository) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.store.mu.RLock()
	var events []*domain.OutboxEvent
	for _, e := range r.store.state.outbox {
		if !e.Published {
			event := e
			events = append(events, &event)
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
	return paginate(events, limit, 0), nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, id string, publishedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	event, ok := r.store.state.outbox[id]
	if !ok {
		return nil
	}
	event.Published = true
	event.PublishedAt = &publishedAt
	r.store.state.outbox[id] = event
	return nil
}

// paginate applies limit and offset; a non-positive limit returns everything
// after offset.
func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
