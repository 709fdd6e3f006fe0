package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// verifyCrossBranch registers and verifies a payment collected for origin
// but paid into paidTo, returning the pending transfer it created.
func verifyCrossBranch(t *testing.T, h *harness, paidTo string, accountType domain.AccountType, origin, amount string, currency domain.Currency) (*domain.Payment, *domain.FundTransfer) {
	t.Helper()
	ctx := context.Background()

	p, err := h.payments.CreatePayment(ctx, paymentInput(paidTo, accountType, origin, amount, currency))
	require.NoError(t, err)

	res, err := h.payments.VerifyPayment(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Settlement.Transfer)

	return res.Payment, res.Settlement.Transfer
}

func TestFundTransfer_CrossBranchPaymentAndCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, transfer := verifyCrossBranch(t, h, "norte", domain.AccountTypeUSDCash, "centro", "50", domain.CurrencyUSD)

	requireDecimal(t, "150", h.balance(t, "norte", domain.AccountTypeUSDCash))
	assert.Equal(t, "centro", transfer.FromBranchID)
	assert.Equal(t, "norte", transfer.ToBranchID)
	assert.Equal(t, domain.FundTransferPending, transfer.Status)
	requireDecimal(t, "50", transfer.AmountUSD)
	assert.Equal(t, domain.SourcePayment, transfer.SourceModule)

	res, err := h.transfers.Complete(ctx, usecase.CompleteTransferInput{TransferID: transfer.ID, Notes: "courier"})
	require.NoError(t, err)
	assert.False(t, res.AlreadyCompleted)
	assert.Equal(t, domain.FundTransferCompleted, res.Transfer.Status)
	assert.Equal(t, "centro:usd_cash", res.Transfer.FromAccountID)
	assert.Equal(t, "norte:usd_cash", res.Transfer.ToAccountID)

	requireDecimal(t, "50", h.balance(t, "centro", domain.AccountTypeUSDCash))
	requireDecimal(t, "200", h.balance(t, "norte", domain.AccountTypeUSDCash))
	assert.Equal(t, domain.DirectionDebit, res.EgressEntry.Direction)
	assert.Equal(t, domain.DirectionCredit, res.IngressEntry.Direction)

	h.requireConsistent(t)
}

func TestFundTransfer_CompleteIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, transfer := verifyCrossBranch(t, h, "norte", domain.AccountTypeUSDCash, "centro", "50", domain.CurrencyUSD)

	_, err := h.transfers.Complete(ctx, usecase.CompleteTransferInput{TransferID: transfer.ID})
	require.NoError(t, err)

	again, err := h.transfers.Complete(ctx, usecase.CompleteTransferInput{TransferID: transfer.ID})
	require.NoError(t, err)
	assert.True(t, again.AlreadyCompleted)

	requireDecimal(t, "50", h.balance(t, "centro", domain.AccountTypeUSDCash))
	requireDecimal(t, "200", h.balance(t, "norte", domain.AccountTypeUSDCash))
	assert.Len(t, h.history(t, "centro"), 1)
}

func TestFundTransfer_DeletePaymentRemovesPendingTransfer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	payment, transfer := verifyCrossBranch(t, h, "norte", domain.AccountTypeUSDCash, "centro", "50", domain.CurrencyUSD)

	require.NoError(t, h.payments.DeletePayment(ctx, payment.ID))

	requireDecimal(t, "100", h.balance(t, "norte", domain.AccountTypeUSDCash))
	assert.Empty(t, h.history(t, "norte"))
	_, err := h.transfers.GetTransfer(ctx, transfer.ID)
	require.ErrorIs(t, err, domain.ErrTransferNotFound)

	h.requireConsistent(t)
}

func TestFundTransfer_CompletedTransferSurvivesPaymentDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	payment, transfer := verifyCrossBranch(t, h, "norte", domain.AccountTypeUSDCash, "centro", "50", domain.CurrencyUSD)

	_, err := h.transfers.Complete(ctx, usecase.CompleteTransferInput{TransferID: transfer.ID})
	require.NoError(t, err)

	require.NoError(t, h.payments.DeletePayment(ctx, payment.ID))

	stored, err := h.transfers.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())

	// Only the payment entry is reversed; the completion entries stay.
	requireDecimal(t, "150", h.balance(t, "norte", domain.AccountTypeUSDCash))
	requireDecimal(t, "50", h.balance(t, "centro", domain.AccountTypeUSDCash))
	h.requireConsistent(t)
}

func TestFundTransfer_DeleteCompletedFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, transfer := verifyCrossBranch(t, h, "norte", domain.AccountTypeUSDCash, "centro", "5", domain.CurrencyUSD)

	_, err := h.transfers.Complete(ctx, usecase.CompleteTransferInput{TransferID: transfer.ID})
	require.NoError(t, err)

	require.ErrorIs(t, h.transfers.Delete(ctx, transfer.ID), domain.ErrTransferAlreadyCompleted)
}

func TestFundTransfer_DeletePending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, transfer := verifyCrossBranch(t, h, "norte", domain.AccountTypeUSDCash, "centro", "5", domain.CurrencyUSD)

	require.NoError(t, h.transfers.Delete(ctx, transfer.ID))
	require.ErrorIs(t, h.transfers.Delete(ctx, transfer.ID), domain.ErrTransferNotFound)

	// The settlement itself is unaffected.
	requireDecimal(t, "105", h.balance(t, "norte", domain.AccountTypeUSDCash))
}

func TestFundTransfer_CurrencyGuardOnCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, transfer := verifyCrossBranch(t, h, "norte", domain.AccountTypeUSDCash, "centro", "50", domain.CurrencyUSD)

	_, err := h.transfers.Complete(ctx, usecase.CompleteTransferInput{
		TransferID:      transfer.ID,
		FromAccountType: domain.AccountTypeVESBank,
	})
	require.ErrorIs(t, err, domain.ErrCurrencyMismatch)

	stored, err := h.transfers.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsCompleted())
	requireDecimal(t, "0", h.balance(t, "centro", domain.AccountTypeVESBank))
	requireDecimal(t, "100", h.balance(t, "centro", domain.AccountTypeUSDCash))
	h.requireConsistent(t)
}

func TestFundTransfer_VESTransferReplaysStoredRate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addRate(t, "2024-03-01", "40")

	_, transfer := verifyCrossBranch(t, h, "norte", domain.AccountTypeVESBank, "centro", "10", domain.CurrencyUSD)
	requireDecimal(t, "400", transfer.Amount)
	assert.Equal(t, domain.CurrencyVES, transfer.Currency)
	requireDecimal(t, "10", transfer.OriginalAmount)
	requireDecimal(t, "10", transfer.AmountUSD)

	// A newer rate must not change the completion amounts.
	h.addRate(t, "2024-03-05", "50")

	res, err := h.transfers.Complete(ctx, usecase.CompleteTransferInput{TransferID: transfer.ID})
	require.NoError(t, err)
	requireDecimal(t, "400", res.EgressEntry.Amount)
	requireDecimal(t, "40", res.EgressEntry.ExchangeRate.Decimal)
	requireDecimal(t, "10", res.EgressEntry.OtherCurrencyAmount.Decimal)

	requireDecimal(t, "-400", h.balance(t, "centro", domain.AccountTypeVESBank))
	requireDecimal(t, "800", h.balance(t, "norte", domain.AccountTypeVESBank))
	h.requireConsistent(t)
}

func TestFundTransfer_CompleteBatchIsolatesFailures(t *testing.T) {
	h := newHarness(t, append(defaultCatalog, "sur:ves_cash:VES")...)
	ctx := context.Background()
	h.addRate(t, "2024-03-01", "40")

	_, good := verifyCrossBranch(t, h, "norte", domain.AccountTypeVESCash, "sur", "100", domain.CurrencyVES)
	// centro has no ves_cash account, so this completion fails.
	_, bad := verifyCrossBranch(t, h, "norte", domain.AccountTypeVESCash, "centro", "200", domain.CurrencyVES)
	// Different group, untouched by the batch.
	_, other := verifyCrossBranch(t, h, "norte", domain.AccountTypeUSDCash, "centro", "5", domain.CurrencyUSD)

	summary, err := h.transfers.PendingSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, domain.AccountTypeUSDCash, summary[0].Key.AccountType)
	assert.Equal(t, domain.AccountTypeVESCash, summary[1].Key.AccountType)
	assert.Equal(t, 2, summary[1].Count)
	requireDecimal(t, "300", summary[1].Total)
	requireDecimal(t, "7.5", summary[1].TotalUSD)

	result, err := h.transfers.CompleteBatch(ctx, domain.TransferGroupKey{AccountType: domain.AccountTypeVESCash, Currency: domain.CurrencyVES}, "weekly run")
	require.NoError(t, err)
	require.Len(t, result.Completed, 1)
	assert.Equal(t, good.ID, result.Completed[0].ID)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, bad.ID, result.Failed[0].TransferID)
	require.ErrorIs(t, result.Failed[0].Err, domain.ErrAccountNotFound)

	requireDecimal(t, "-100", h.balance(t, "sur", domain.AccountTypeVESCash))

	stillPending, err := h.transfers.ListTransfers(ctx, usecase.FundTransferFilter{Status: domain.FundTransferPending})
	require.NoError(t, err)
	var ids []string
	for _, p := range stillPending {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{bad.ID, other.ID}, ids)

	h.requireConsistent(t)
}

func TestFundTransfer_SameBranchPaymentCreatesNoTransfer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.payments.CreatePayment(ctx, paymentInput("norte", domain.AccountTypeUSDCash, "norte", "5", domain.CurrencyUSD))
	require.NoError(t, err)
	res, err := h.payments.VerifyPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Settlement.Transfer)

	summary, err := h.transfers.PendingSummary(ctx)
	require.NoError(t, err)
	assert.Empty(t, summary)
}
