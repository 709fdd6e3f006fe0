package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

func TestExpense_CreateDebitsAccount(t *testing.T) {
	h := newHarness(t)

	res, err := h.expenses.CreateExpense(context.Background(), expenseOn("norte", domain.AccountTypeUSDCash, "12.50", domain.CurrencyUSD, "2024-03-10"))
	require.NoError(t, err)

	assert.Equal(t, domain.DirectionDebit, res.Entry.Direction)
	assert.Equal(t, domain.SourceExpense, res.Entry.SourceModule)
	assert.Equal(t, res.Expense.ID, res.Entry.SourceID)
	requireDecimal(t, "87.50", h.balance(t, "norte", domain.AccountTypeUSDCash))
	h.requireConsistent(t)
}

func TestExpense_VESExpenseFromUSDAccount(t *testing.T) {
	h := newHarness(t)
	h.addRate(t, "2024-03-01", "40")

	res, err := h.expenses.CreateExpense(context.Background(), expenseOn("norte", domain.AccountTypeUSDCash, "200", domain.CurrencyVES, "2024-03-10"))
	require.NoError(t, err)

	requireDecimal(t, "5", res.Entry.Amount)
	requireDecimal(t, "200", res.Entry.OtherCurrencyAmount.Decimal)
	requireDecimal(t, "95", h.balance(t, "norte", domain.AccountTypeUSDCash))
}

func TestExpense_EditReplacesEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.expenses.CreateExpense(ctx, expenseOn("norte", domain.AccountTypeUSDCash, "10", domain.CurrencyUSD, "2024-03-10"))
	require.NoError(t, err)

	edited, err := h.expenses.EditExpense(ctx, usecase.EditExpenseInput{
		ID:           created.Expense.ID,
		ExpenseInput: expenseOn("norte", domain.AccountTypeUSDCash, "25", domain.CurrencyUSD, "2024-03-11"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.Entry.ID, edited.Entry.ID)

	entries := h.history(t, "norte")
	require.Len(t, entries, 1)
	requireDecimal(t, "25", entries[0].Amount)
	requireDecimal(t, "75", h.balance(t, "norte", domain.AccountTypeUSDCash))
	h.requireConsistent(t)
}

func TestExpense_EditToAnotherAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.expenses.CreateExpense(ctx, expenseOn("norte", domain.AccountTypeUSDCash, "10", domain.CurrencyUSD, "2024-03-10"))
	require.NoError(t, err)

	_, err = h.expenses.EditExpense(ctx, usecase.EditExpenseInput{
		ID:           created.Expense.ID,
		ExpenseInput: expenseOn("centro", domain.AccountTypeUSDCash, "10", domain.CurrencyUSD, "2024-03-10"),
	})
	require.NoError(t, err)

	requireDecimal(t, "100", h.balance(t, "norte", domain.AccountTypeUSDCash))
	requireDecimal(t, "90", h.balance(t, "centro", domain.AccountTypeUSDCash))
	h.requireConsistent(t)
}

func TestExpense_FailedEditKeepsOriginal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.expenses.CreateExpense(ctx, expenseOn("norte", domain.AccountTypeUSDCash, "10", domain.CurrencyUSD, "2024-03-10"))
	require.NoError(t, err)

	// No rate recorded, so a VES amount cannot settle into a USD account.
	_, err = h.expenses.EditExpense(ctx, usecase.EditExpenseInput{
		ID:           created.Expense.ID,
		ExpenseInput: expenseOn("norte", domain.AccountTypeUSDCash, "400", domain.CurrencyVES, "2024-03-10"),
	})
	require.ErrorIs(t, err, domain.ErrNoExchangeRate)

	stored, err := h.expenses.GetExpense(ctx, created.Expense.ID)
	require.NoError(t, err)
	requireDecimal(t, "10", stored.Amount)
	requireDecimal(t, "90", h.balance(t, "norte", domain.AccountTypeUSDCash))
	h.requireConsistent(t)
}

func TestExpense_DeleteRestoresBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.expenses.CreateExpense(ctx, expenseOn("norte", domain.AccountTypeUSDCash, "10", domain.CurrencyUSD, "2024-03-10"))
	require.NoError(t, err)

	require.NoError(t, h.expenses.DeleteExpense(ctx, created.Expense.ID))
	requireDecimal(t, "100", h.balance(t, "norte", domain.AccountTypeUSDCash))
	assert.Empty(t, h.history(t, "norte"))

	require.ErrorIs(t, h.expenses.DeleteExpense(ctx, created.Expense.ID), domain.ErrExpenseNotFound)
}

func TestExpense_RejectsInvalidInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.expenses.CreateExpense(ctx, expenseOn("norte", domain.AccountTypeUSDCash, "-1", domain.CurrencyUSD, "2024-03-10"))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = h.expenses.CreateExpense(ctx, expenseOn("norte", domain.AccountTypeVESBank, "1", domain.CurrencyUSD, "2024-03-10"))
	require.ErrorIs(t, err, domain.ErrNoExchangeRate)
}
