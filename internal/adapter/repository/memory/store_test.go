package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
)

func seedAccount(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()

	tx, err := NewTxManager(store).Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = NewAccountRepository(store).Create(ctx, tx, &domain.Account{
		ID:       "centro:usd_cash",
		BranchID: "centro",
		Type:     domain.AccountTypeUSDCash,
		Currency: domain.CurrencyUSD,
		Balance:  decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestTxRollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedAccount(t, store)
	accounts := NewAccountRepository(store)
	entries := NewEntryRepository(store)

	tx, err := NewTxManager(store).Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := accounts.UpdateBalance(ctx, tx, "centro:usd_cash", decimal.NewFromInt(99), 1, time.Now()); err != nil {
		t.Fatalf("update: %v", err)
	}
	entry := &domain.Entry{ID: "e1", BranchID: "centro", AccountID: "centro:usd_cash"}
	if err := entries.Create(ctx, tx, entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if entry.Sequence != 1 {
		t.Fatalf("expected sequence 1, got %d", entry.Sequence)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	account, err := accounts.GetByID(ctx, "centro:usd_cash")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !account.Balance.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected balance 10 after rollback, got %s", account.Balance)
	}
	if _, err := entries.GetByID(ctx, nil, "e1"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected entry to be rolled back, got %v", err)
	}
}

func TestTxCloseTwice(t *testing.T) {
	ctx := context.Background()
	tx, err := NewTxManager(NewStore()).Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := tx.Rollback(ctx); !errors.Is(err, ErrTxClosed) {
		t.Fatalf("expected ErrTxClosed on rollback after commit, got %v", err)
	}
	if err := tx.Commit(ctx); !errors.Is(err, ErrTxClosed) {
		t.Fatalf("expected ErrTxClosed on second commit, got %v", err)
	}
}

func TestBeginHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewTxManager(NewStore()).Begin(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedAccount(t, store)
	accounts := NewAccountRepository(store)

	account, _ := accounts.GetByID(ctx, "centro:usd_cash")
	account.Balance = decimal.NewFromInt(1000)

	again, _ := accounts.GetByID(ctx, "centro:usd_cash")
	if !again.Balance.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("mutating a returned account leaked into the store: %s", again.Balance)
	}
}

func TestExchangeRateFindOnOrBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewExchangeRateRepository(NewStore())
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

	for d, rate := range map[int]string{1: "36.1", 5: "36.5"} {
		if err := repo.Create(ctx, &domain.ExchangeRate{Date: day(d), Rate: decimal.RequireFromString(rate)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := repo.Create(ctx, &domain.ExchangeRate{Date: day(5), Rate: decimal.NewFromInt(1)}); !errors.Is(err, domain.ErrRateAlreadyExists) {
		t.Fatalf("expected ErrRateAlreadyExists, got %v", err)
	}

	tests := []struct {
		day  int
		want string
	}{
		{day: 1, want: "36.1"},
		{day: 3, want: "36.1"},
		{day: 5, want: "36.5"},
		{day: 20, want: "36.5"},
	}
	for _, tt := range tests {
		got, err := repo.FindOnOrBefore(ctx, day(tt.day))
		if err != nil {
			t.Fatalf("day %d: unexpected error: %v", tt.day, err)
		}
		if !got.Rate.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("day %d: expected %s, got %s", tt.day, tt.want, got.Rate)
		}
	}

	if _, err := repo.FindOnOrBefore(ctx, time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)); !errors.Is(err, domain.ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound before the first rate, got %v", err)
	}

	rates, _ := repo.List(ctx, 10, 0)
	if len(rates) != 2 || !rates[0].Date.Equal(day(5)) {
		t.Fatalf("expected newest first, got %+v", rates)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	if got := paginate(items, 2, 1); len(got) != 2 || got[0] != 2 {
		t.Fatalf("unexpected page %v", got)
	}
	if got := paginate(items, 0, 3); len(got) != 2 {
		t.Fatalf("expected remainder without limit, got %v", got)
	}
	if got := paginate(items, 10, 10); got != nil {
		t.Fatalf("expected nil past the end, got %v", got)
	}
}

func TestSequentialIDGenerator(t *testing.T) {
	gen := NewSequentialIDGenerator("pay")
	if first, second := gen.Generate(), gen.Generate(); first != "pay-000001" || second != "pay-000002" {
		t.Fatalf("unexpected ids %s, %s", first, second)
	}
}
