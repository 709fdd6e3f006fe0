package dto

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
)

func TestPaymentRequest_ToUseCaseInput(t *testing.T) {
	tests := []struct {
		name        string
		request     *PaymentRequest
		expectError error
	}{
		{
			name: "valid payment",
			request: &PaymentRequest{
				Date:              "2024-03-10",
				Amount:            decimal.RequireFromString("400"),
				Currency:          "ves",
				PaidToBranchID:    "centro",
				PaidToAccountType: "ves_bank",
				OriginBranchID:    "norte",
				LinkKind:          "invoice",
				LinkID:            "inv-1",
			},
		},
		{
			name:        "invalid currency",
			request:     &PaymentRequest{Date: "2024-03-10", Currency: "EUR"},
			expectError: domain.ErrInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.request.ToUseCaseInput()
			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("expected %v, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got.Currency != domain.CurrencyVES {
				t.Fatalf("expected normalized VES currency, got %s", got.Currency)
			}
			if got.Date.Format(domain.DateLayout) != "2024-03-10" {
				t.Fatalf("unexpected date %s", got.Date)
			}
			if got.PaidToAccountType != domain.AccountTypeVESBank || got.LinkKind != domain.LinkInvoice {
				t.Fatalf("unexpected input %+v", got)
			}
			if !got.Amount.Equal(decimal.RequireFromString("400")) {
				t.Fatalf("unexpected amount %s", got.Amount)
			}
		})
	}
}

func TestPaymentRequest_InvalidDate(t *testing.T) {
	req := &PaymentRequest{Date: "10/03/2024", Currency: "USD"}
	if _, err := req.ToUseCaseInput(); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestExpenseRequest_DefaultsDateToToday(t *testing.T) {
	req := &ExpenseRequest{Currency: "USD", BranchID: "centro", AccountType: "usd_cash"}

	got, err := req.ToUseCaseInput()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Date.IsZero() || got.Date.Hour() != 0 {
		t.Fatalf("expected today's business date, got %s", got.Date)
	}
}

func TestCompleteTransferRequest_ToUseCaseInput(t *testing.T) {
	req := &CompleteTransferRequest{Notes: "deposited", ToAccountType: "usd_bank"}

	got := req.ToUseCaseInput("ft-1")
	if got.TransferID != "ft-1" || got.Notes != "deposited" {
		t.Fatalf("unexpected input %+v", got)
	}
	if got.FromAccountType != "" || got.ToAccountType != domain.AccountTypeUSDBank {
		t.Fatalf("unexpected account types %+v", got)
	}
}

func TestCompleteBatchRequest_GroupKey(t *testing.T) {
	req := &CompleteBatchRequest{AccountType: "usd_cash", Currency: "usd"}
	key, err := req.GroupKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.AccountType != domain.AccountTypeUSDCash || key.Currency != domain.CurrencyUSD {
		t.Fatalf("unexpected key %+v", key)
	}

	req = &CompleteBatchRequest{AccountType: "", Currency: "USD"}
	if _, err := req.GroupKey(); !errors.Is(err, domain.ErrInvalidAccountType) {
		t.Fatalf("expected ErrInvalidAccountType, got %v", err)
	}
}
