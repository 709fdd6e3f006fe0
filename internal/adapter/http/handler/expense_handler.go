package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/branchledger/internal/adapter/http/dto"
	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// ExpenseService defines the behavior needed by ExpenseHandler.
type ExpenseService interface {
	CreateExpense(ctx context.Context, input usecase.ExpenseInput) (*usecase.ExpenseResult, error)
	EditExpense(ctx context.Context, input usecase.EditExpenseInput) (*usecase.ExpenseResult, error)
	DeleteExpense(ctx context.Context, id string) error
	GetExpense(ctx context.Context, id string) (*domain.Expense, error)
}

// ExpenseHandler handles expense HTTP requests.
type ExpenseHandler struct {
	expenseUC ExpenseService
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseUC ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseUC: expenseUC}
}

// Create records an expense and debits its account.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeExpense(w, r)
	if !ok {
		return
	}

	result, err := h.expenseUC.CreateExpense(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to create expense", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ExpenseFromResult(result))
}

// Get retrieves an expense by ID.
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	expense, err := h.expenseUC.GetExpense(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get expense", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ExpenseFromResult(&usecase.ExpenseResult{Expense: expense}))
}

// Update edits an expense, replacing its ledger entry.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeExpense(w, r)
	if !ok {
		return
	}

	result, err := h.expenseUC.EditExpense(r.Context(), usecase.EditExpenseInput{
		ID:           chi.URLParam(r, "id"),
		ExpenseInput: input,
	})
	if err != nil {
		writeDomainError(w, "failed to edit expense", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ExpenseFromResult(result))
}

// Delete removes an expense and restores its account balance.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.expenseUC.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "failed to delete expense", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeExpense(w http.ResponseWriter, r *http.Request) (usecase.ExpenseInput, bool) {
	var req dto.ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return usecase.ExpenseInput{}, false
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense", err.Error())
		return usecase.ExpenseInput{}, false
	}
	return input, true
}
