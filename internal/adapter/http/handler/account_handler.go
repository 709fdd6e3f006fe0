package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/branchledger/internal/adapter/http/dto"
	"github.com/iho/branchledger/internal/domain"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	GetAccount(ctx context.Context, branchID string, accountType domain.AccountType) (*domain.Account, error)
	ListAccounts(ctx context.Context, branchID string) ([]*domain.Account, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Get retrieves one account of a branch.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branch")
	accountType := domain.AccountType(chi.URLParam(r, "type"))
	if branchID == "" || accountType == "" {
		writeError(w, http.StatusBadRequest, "missing branch or account type", "")
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), branchID, accountType)
	if err != nil {
		writeDomainError(w, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists the accounts of a branch.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branch")
	if branchID == "" {
		writeError(w, http.StatusBadRequest, "missing branch ID", "")
		return
	}

	accounts, err := h.accountUC.ListAccounts(r.Context(), branchID)
	if err != nil {
		writeDomainError(w, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}
