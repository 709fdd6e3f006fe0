package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/branchledger/internal/domain"
)

func TestSettlement_SameCurrencyExpense(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.expenses.CreateExpense(ctx, expenseOn("centro", domain.AccountTypeUSDCash, "20", domain.CurrencyUSD, "2024-03-10"))
	require.NoError(t, err)

	requireDecimal(t, "80", h.balance(t, "centro", domain.AccountTypeUSDCash))

	entries := h.history(t, "centro")
	require.Len(t, entries, 1)
	assert.Equal(t, res.Entry.ID, entries[0].ID)
	assert.Equal(t, domain.DirectionDebit, entries[0].Direction)
	requireDecimal(t, "100", entries[0].AccountPreviousBalance)
	requireDecimal(t, "80", entries[0].AccountCurrentBalance)
	assert.False(t, entries[0].ExchangeRate.Valid, "USD to USD without a rate stores no rate")

	h.requireConsistent(t)
}

func TestSettlement_ConvertsVESIntoUSDAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addRate(t, "2024-03-10", "40")

	res, err := h.expenses.CreateExpense(ctx, expenseOn("centro", domain.AccountTypeUSDCash, "800", domain.CurrencyVES, "2024-03-10"))
	require.NoError(t, err)

	requireDecimal(t, "80", h.balance(t, "centro", domain.AccountTypeUSDCash))
	requireDecimal(t, "20", res.Entry.Amount)
	assert.Equal(t, domain.CurrencyUSD, res.Entry.Currency)
	require.True(t, res.Entry.ExchangeRate.Valid)
	requireDecimal(t, "40", res.Entry.ExchangeRate.Decimal)
	require.True(t, res.Entry.OtherCurrencyAmount.Valid)
	requireDecimal(t, "800", res.Entry.OtherCurrencyAmount.Decimal)

	h.requireConsistent(t)
}

func TestSettlement_UsesLatestEarlierRate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addRate(t, "2024-03-01", "36")
	h.addRate(t, "2024-03-20", "40")

	res, err := h.expenses.CreateExpense(ctx, expenseOn("norte", domain.AccountTypeVESBank, "10", domain.CurrencyUSD, "2024-03-15"))
	require.NoError(t, err)

	requireDecimal(t, "360", res.Entry.Amount)
	requireDecimal(t, "36", res.Entry.ExchangeRate.Decimal)
	requireDecimal(t, "-360", h.balance(t, "norte", domain.AccountTypeVESBank))
}

func TestSettlement_MissingRateAbortsWithoutWrites(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	// A rate dated after the event must not be used for it.
	h.addRate(t, "2024-04-01", "40")

	_, err := h.expenses.CreateExpense(ctx, expenseOn("norte", domain.AccountTypeVESBank, "100", domain.CurrencyVES, "2024-03-15"))
	require.ErrorIs(t, err, domain.ErrNoExchangeRate)

	_, err = h.expenses.CreateExpense(ctx, expenseOn("norte", domain.AccountTypeVESBank, "10", domain.CurrencyUSD, "2024-03-15"))
	require.ErrorIs(t, err, domain.ErrNoExchangeRate)
	require.ErrorIs(t, err, domain.ErrCurrencyMismatch)

	requireDecimal(t, "0", h.balance(t, "norte", domain.AccountTypeVESBank))
	assert.Empty(t, h.history(t, "norte"))
	h.requireConsistent(t)
}

func TestSettlement_UnknownAccount(t *testing.T) {
	h := newHarness(t)

	_, err := h.expenses.CreateExpense(context.Background(), expenseOn("sur", domain.AccountTypeUSDCash, "5", domain.CurrencyUSD, "2024-03-15"))
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestSettlement_SourceSettlesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ev := domain.SettlementEvent{
		Date:         day("2024-03-10"),
		Amount:       dec("12.50"),
		Currency:     domain.CurrencyUSD,
		BranchID:     "centro",
		AccountType:  domain.AccountTypeUSDCash,
		SourceModule: domain.SourceSale,
		SourceID:     "sale-1",
		Direction:    domain.DirectionCredit,
	}

	_, err := h.settlement.Apply(ctx, ev)
	require.NoError(t, err)

	_, err = h.settlement.Apply(ctx, ev)
	require.ErrorIs(t, err, domain.ErrAlreadySettled)

	requireDecimal(t, "112.50", h.balance(t, "centro", domain.AccountTypeUSDCash))
}

func TestSettlement_ReverseRestoresExactlyWithoutRerate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addRate(t, "2024-03-10", "40")

	res, err := h.expenses.CreateExpense(ctx, expenseOn("centro", domain.AccountTypeUSDCash, "333", domain.CurrencyVES, "2024-03-10"))
	require.NoError(t, err)
	requireDecimal(t, "8.33", res.Entry.Amount)

	// The rate that priced the entry is gone; reversal must not need it.
	require.NoError(t, h.rates.DeleteRate(ctx, day("2024-03-10")))
	h.addRate(t, "2024-03-10", "50")

	require.NoError(t, h.expenses.DeleteExpense(ctx, res.Expense.ID))

	requireDecimal(t, "100", h.balance(t, "centro", domain.AccountTypeUSDCash))
	assert.Empty(t, h.history(t, "centro"))
	h.requireConsistent(t)
}

func TestSettlement_ReverseOfUnsettledSourceIsNoop(t *testing.T) {
	h := newHarness(t)

	res, err := h.settlement.Reverse(context.Background(), domain.SourceRef{BranchID: "centro", Module: domain.SourceSale, ID: "missing"})
	require.NoError(t, err)
	assert.Nil(t, res.Entry)
	requireDecimal(t, "100", h.balance(t, "centro", domain.AccountTypeUSDCash))
}

func TestSettlement_RemovingEarlierEntryRebasesLaterSnapshots(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.expenses.CreateExpense(ctx, expenseOn("centro", domain.AccountTypeUSDCash, "10", domain.CurrencyUSD, "2024-03-10"))
	require.NoError(t, err)
	_, err = h.expenses.CreateExpense(ctx, expenseOn("centro", domain.AccountTypeUSDCash, "5", domain.CurrencyUSD, "2024-03-11"))
	require.NoError(t, err)
	_, err = h.expenses.CreateExpense(ctx, expenseOn("centro", domain.AccountTypeUSDCash, "1", domain.CurrencyUSD, "2024-03-12"))
	require.NoError(t, err)

	require.NoError(t, h.expenses.DeleteExpense(ctx, first.Expense.ID))

	requireDecimal(t, "94", h.balance(t, "centro", domain.AccountTypeUSDCash))

	entries := h.history(t, "centro")
	require.Len(t, entries, 2)
	requireDecimal(t, "5", entries[0].Amount)
	requireDecimal(t, "100", entries[0].AccountPreviousBalance)
	requireDecimal(t, "95", entries[0].AccountCurrentBalance)
	requireDecimal(t, "1", entries[1].Amount)
	requireDecimal(t, "94", entries[1].AccountCurrentBalance)

	h.requireConsistent(t)
}

func TestSettlement_EntriesEmitOutboxEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.expenses.CreateExpense(ctx, expenseOn("centro", domain.AccountTypeUSDCash, "3", domain.CurrencyUSD, "2024-03-10"))
	require.NoError(t, err)
	require.NoError(t, h.expenses.DeleteExpense(ctx, res.Expense.ID))

	events, err := h.outbox.GetUnpublished(ctx, 10)
	require.NoError(t, err)

	var types []string
	for _, e := range events {
		types = append(types, e.EventType)
		assert.Equal(t, res.Entry.ID, e.AggregateID)
	}
	assert.ElementsMatch(t, []string{domain.EventTypeEntryAppended, domain.EventTypeEntryRemoved}, types)
}
