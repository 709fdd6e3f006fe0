package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
	"github.com/iho/branchledger/tests/testutil"
)

func TestConcurrentExpensesKeepSnapshotsConsistent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()

	l := testDB.NewLedger(ctx, catalog...)

	numExpenses := 50
	var (
		wg           sync.WaitGroup
		successCount atomic.Int32
		errorCount   atomic.Int32
	)

	wg.Add(numExpenses)
	for range numExpenses {
		go func() {
			defer wg.Done()

			_, err := l.Expenses.CreateExpense(ctx, usecase.ExpenseInput{
				Date:        testutil.Date(t, "2024-03-10"),
				Amount:      decimal.NewFromInt(1),
				Currency:    domain.CurrencyUSD,
				BranchID:    "centro",
				AccountType: domain.AccountTypeUSDCash,
				Category:    "supplies",
			})
			if err != nil {
				errorCount.Add(1)
			} else {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(numExpenses) {
		t.Errorf("expected %d successful expenses, got %d (errors: %d)", numExpenses, successCount.Load(), errorCount.Load())
	}

	if got := l.Balance(t, ctx, "centro", domain.AccountTypeUSDCash); !got.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected centro usd_cash 50, got %s", got)
	}

	l.RequireReconciled(t, ctx)
}

func TestConcurrentTransferCompletionMovesMoneyOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()

	l := testDB.NewLedger(ctx, catalog...)

	payment, err := l.Payments.CreatePayment(ctx, usecase.CreatePaymentInput{
		Date:              testutil.Date(t, "2024-03-10"),
		Amount:            decimal.NewFromInt(30),
		Currency:          domain.CurrencyUSD,
		PaidToBranchID:    "centro",
		PaidToAccountType: domain.AccountTypeUSDCash,
		OriginBranchID:    "norte",
		LinkKind:          domain.LinkInvoice,
		LinkID:            "inv-9",
	})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}
	verified, err := l.Payments.VerifyPayment(ctx, payment.ID)
	if err != nil {
		t.Fatalf("failed to verify payment: %v", err)
	}
	transferID := verified.Settlement.Transfer.ID

	centroBefore := l.Balance(t, ctx, "centro", domain.AccountTypeUSDCash)
	norteBefore := l.Balance(t, ctx, "norte", domain.AccountTypeUSDCash)

	numWorkers := 10
	var (
		wg       sync.WaitGroup
		moved    atomic.Int32
		repeated atomic.Int32
		failed   atomic.Int32
	)

	wg.Add(numWorkers)
	for range numWorkers {
		go func() {
			defer wg.Done()

			res, err := l.Transfers.Complete(ctx, usecase.CompleteTransferInput{TransferID: transferID})
			switch {
			case err != nil:
				failed.Add(1)
			case res.AlreadyCompleted:
				repeated.Add(1)
			default:
				moved.Add(1)
			}
		}()
	}
	wg.Wait()

	if moved.Load() != 1 {
		t.Fatalf("expected exactly one completion to move money, got %d (repeated %d, failed %d)",
			moved.Load(), repeated.Load(), failed.Load())
	}

	centroDelta := l.Balance(t, ctx, "centro", domain.AccountTypeUSDCash).Sub(centroBefore)
	norteDelta := l.Balance(t, ctx, "norte", domain.AccountTypeUSDCash).Sub(norteBefore)
	if !centroDelta.Add(norteDelta).IsZero() || centroDelta.Abs().Cmp(decimal.NewFromInt(30)) != 0 {
		t.Errorf("expected a single 30 USD move between branches, got centro %s norte %s", centroDelta, norteDelta)
	}

	l.RequireReconciled(t, ctx)
}
