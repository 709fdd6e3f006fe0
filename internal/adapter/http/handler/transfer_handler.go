package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/branchledger/internal/adapter/http/dto"
	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// FundTransferService defines the behavior needed by TransferHandler.
type FundTransferService interface {
	Complete(ctx context.Context, input usecase.CompleteTransferInput) (*usecase.CompleteTransferResult, error)
	CompleteBatch(ctx context.Context, key domain.TransferGroupKey, notes string) (*usecase.BatchResult, error)
	Delete(ctx context.Context, id string) error
	GetTransfer(ctx context.Context, id string) (*domain.FundTransfer, error)
	ListTransfers(ctx context.Context, filter usecase.FundTransferFilter) ([]*domain.FundTransfer, error)
	PendingSummary(ctx context.Context) ([]usecase.PendingGroup, error)
}

// TransferHandler handles inter-branch fund transfer HTTP requests.
type TransferHandler struct {
	transferUC FundTransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferUC FundTransferService) *TransferHandler {
	return &TransferHandler{transferUC: transferUC}
}

// List lists transfers filtered by status, account_type and currency.
func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(r)
	filter := usecase.FundTransferFilter{
		Status: domain.FundTransferStatus(q.Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	if q.Get("account_type") != "" || q.Get("currency") != "" {
		currency, err := domain.ParseCurrency(q.Get("currency"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid currency", err.Error())
			return
		}
		filter.Group = &domain.TransferGroupKey{
			AccountType: domain.AccountType(q.Get("account_type")),
			Currency:    currency,
		}
	}

	transfers, err := h.transferUC.ListTransfers(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "failed to list fund transfers", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FundTransfersFromDomain(transfers))
}

// Summary returns pending transfers grouped by account type and currency.
func (h *TransferHandler) Summary(w http.ResponseWriter, r *http.Request) {
	groups, err := h.transferUC.PendingSummary(r.Context())
	if err != nil {
		writeDomainError(w, "failed to summarize fund transfers", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PendingSummaryFromGroups(groups))
}

// Get retrieves a fund transfer by ID.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	transfer, err := h.transferUC.GetTransfer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get fund transfer", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FundTransferFromDomain(transfer))
}

// Complete moves the money of a pending transfer between the branches.
func (h *TransferHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req dto.CompleteTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.transferUC.Complete(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "failed to complete fund transfer", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CompleteTransferFromResult(result))
}

// CompleteBatch completes every pending transfer of one group.
func (h *TransferHandler) CompleteBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.CompleteBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	key, err := req.GroupKey()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transfer group", err.Error())
		return
	}

	result, err := h.transferUC.CompleteBatch(r.Context(), key, req.Notes)
	if err != nil {
		writeDomainError(w, "failed to complete fund transfers", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CompleteBatchFromResult(result))
}

// Delete removes a pending transfer.
func (h *TransferHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.transferUC.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "failed to delete fund transfer", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
