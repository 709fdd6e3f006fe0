package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/adapter/http/dto"
	"github.com/iho/branchledger/internal/domain"
)

type accountServiceStub struct {
	getFn  func(ctx context.Context, branchID string, accountType domain.AccountType) (*domain.Account, error)
	listFn func(ctx context.Context, branchID string) ([]*domain.Account, error)
}

func (s *accountServiceStub) GetAccount(ctx context.Context, branchID string, accountType domain.AccountType) (*domain.Account, error) {
	return s.getFn(ctx, branchID, accountType)
}

func (s *accountServiceStub) ListAccounts(ctx context.Context, branchID string) ([]*domain.Account, error) {
	return s.listFn(ctx, branchID)
}

func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAccountHandler_Get_Success(t *testing.T) {
	var gotBranch string
	var gotType domain.AccountType
	handler := NewAccountHandler(&accountServiceStub{
		getFn: func(ctx context.Context, branchID string, accountType domain.AccountType) (*domain.Account, error) {
			gotBranch, gotType = branchID, accountType
			return &domain.Account{
				ID:       domain.AccountID(branchID, accountType),
				BranchID: branchID,
				Type:     accountType,
				Currency: domain.CurrencyUSD,
				Balance:  decimal.RequireFromString("100"),
			}, nil
		},
	})

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/branches/centro/accounts/usd_cash", nil),
		map[string]string{"branch": "centro", "type": "usd_cash"})
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotBranch != "centro" || gotType != domain.AccountTypeUSDCash {
		t.Fatalf("unexpected lookup %s/%s", gotBranch, gotType)
	}

	var resp dto.AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.BranchID != "centro" || !resp.Balance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestAccountHandler_Get_NotFound(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		getFn: func(ctx context.Context, branchID string, accountType domain.AccountType) (*domain.Account, error) {
			return nil, domain.ErrAccountNotFound
		},
	})

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil),
		map[string]string{"branch": "centro", "type": "usd_bank"})
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAccountHandler_Get_MissingParams(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{})

	rec := httptest.NewRecorder()
	handler.Get(rec, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"branch": "centro"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountHandler_List(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		listFn: func(ctx context.Context, branchID string) ([]*domain.Account, error) {
			return []*domain.Account{
				{ID: "norte:usd_cash", BranchID: branchID, Type: domain.AccountTypeUSDCash},
				{ID: "norte:ves_bank", BranchID: branchID, Type: domain.AccountTypeVESBank},
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	handler.List(rec, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"branch": "norte"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.ListAccountsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 || resp.Accounts[1].Type != "ves_bank" {
		t.Fatalf("unexpected response %+v", resp)
	}
}
