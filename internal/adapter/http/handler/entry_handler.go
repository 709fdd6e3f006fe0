package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/branchledger/internal/adapter/http/dto"
	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	History(ctx context.Context, input usecase.HistoryInput) ([]*domain.Entry, error)
}

// EntryHandler handles ledger entry HTTP requests.
type EntryHandler struct {
	ledgerUC EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(ledgerUC EntryService) *EntryHandler {
	return &EntryHandler{ledgerUC: ledgerUC}
}

// ListByBranch lists the entries of a branch in sequence order.
func (h *EntryHandler) ListByBranch(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branch")
	if branchID == "" {
		writeError(w, http.StatusBadRequest, "missing branch ID", "")
		return
	}

	limit, offset := pageParams(r)
	entries, err := h.ledgerUC.History(r.Context(), usecase.HistoryInput{
		BranchID: branchID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeDomainError(w, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}
