package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/branchledger/internal/adapter/repository/memory"
	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

var defaultCatalog = []string{
	"centro:usd_cash:USD:100",
	"centro:ves_bank:VES",
	"norte:usd_cash:USD:100",
	"norte:ves_bank:VES",
	"norte:ves_cash:VES",
}

type harness struct {
	store      *memory.Store
	txManager  *memory.TxManager
	outbox     *memory.OutboxRepository
	accounts   *usecase.AccountUseCase
	ledger     *usecase.LedgerUseCase
	rates      *usecase.ExchangeRateUseCase
	transfers  *usecase.FundTransferUseCase
	settlement *usecase.SettlementUseCase
	payments   *usecase.PaymentUseCase
	expenses   *usecase.ExpenseUseCase
	recon      *usecase.ReconciliationUseCase
}

func newHarness(t *testing.T, specs ...string) *harness {
	t.Helper()
	if len(specs) == 0 {
		specs = defaultCatalog
	}

	store := memory.NewStore()
	txManager := memory.NewTxManager(store)
	idGen := memory.NewSequentialIDGenerator("id")
	accountRepo := memory.NewAccountRepository(store)
	entryRepo := memory.NewEntryRepository(store)
	outboxRepo := memory.NewOutboxRepository(store)

	h := &harness{store: store, txManager: txManager, outbox: outboxRepo}
	h.accounts = usecase.NewAccountUseCase(txManager, accountRepo)
	h.ledger = usecase.NewLedgerUseCase(h.accounts, entryRepo, idGen)
	h.rates = usecase.NewExchangeRateUseCase(memory.NewExchangeRateRepository(store))
	h.transfers = usecase.NewFundTransferUseCase(txManager, h.accounts, h.ledger,
		memory.NewFundTransferRepository(store), outboxRepo, idGen)
	h.settlement = usecase.NewSettlementUseCase(txManager, h.accounts, h.ledger, h.rates, h.transfers, outboxRepo, idGen)
	h.payments = usecase.NewPaymentUseCase(txManager, memory.NewPaymentRepository(store), h.accounts, h.rates,
		h.settlement, outboxRepo, idGen)
	h.expenses = usecase.NewExpenseUseCase(txManager, memory.NewExpenseRepository(store), h.settlement, idGen)
	h.recon = usecase.NewReconciliationUseCase(accountRepo, entryRepo)

	catalog, err := domain.ParseCatalog(specs)
	require.NoError(t, err)
	_, err = h.accounts.Provision(context.Background(), catalog)
	require.NoError(t, err)

	return h
}

func day(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (h *harness) addRate(t *testing.T, date, rate string) {
	t.Helper()
	_, err := h.rates.AddRate(context.Background(), day(date), dec(rate))
	require.NoError(t, err)
}

func (h *harness) balance(t *testing.T, branch string, accountType domain.AccountType) decimal.Decimal {
	t.Helper()
	account, err := h.accounts.GetAccount(context.Background(), branch, accountType)
	require.NoError(t, err)
	return account.Balance
}

func (h *harness) history(t *testing.T, branch string) []*domain.Entry {
	t.Helper()
	entries, err := h.ledger.History(context.Background(), usecase.HistoryInput{BranchID: branch, Limit: 1000})
	require.NoError(t, err)
	return entries
}

// requireConsistent checks every account against its entries and snapshots.
func (h *harness) requireConsistent(t *testing.T) {
	t.Helper()
	report, err := h.recon.GenerateReport(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, report.Discrepancies, "ledger out of balance: %+v", report.Discrepancies)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func expenseOn(branch string, accountType domain.AccountType, amount string, currency domain.Currency, date string) usecase.ExpenseInput {
	return usecase.ExpenseInput{
		Date:        day(date),
		Amount:      dec(amount),
		Currency:    currency,
		BranchID:    branch,
		AccountType: accountType,
		Category:    "supplies",
		Description: "flour",
	}
}
