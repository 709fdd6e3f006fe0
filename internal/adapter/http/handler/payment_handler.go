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

// PaymentService defines the behavior needed by PaymentHandler.
type PaymentService interface {
	CreatePayment(ctx context.Context, input usecase.CreatePaymentInput) (*domain.Payment, error)
	EditPayment(ctx context.Context, input usecase.EditPaymentInput) (*domain.Payment, error)
	VerifyPayment(ctx context.Context, id string) (*usecase.VerifyPaymentResult, error)
	RejectPayment(ctx context.Context, id, reason string) (*domain.Payment, error)
	DeletePayment(ctx context.Context, id string) error
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	ListPayments(ctx context.Context, status domain.PaymentStatus, limit, offset int) ([]*domain.Payment, error)
}

// PaymentHandler handles payment workflow HTTP requests.
type PaymentHandler struct {
	paymentUC PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentUC PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentUC: paymentUC}
}

// Create records a pending payment.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := decodePayment(w, r)
	if !ok {
		return
	}

	payment, err := h.paymentUC.CreatePayment(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to create payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PaymentFromDomain(payment))
}

// Get retrieves a payment by ID.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	payment, err := h.paymentUC.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get payment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentFromDomain(payment))
}

// List lists payments, optionally filtered by status.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.PaymentStatus(r.URL.Query().Get("status"))
	limit, offset := pageParams(r)
	payments, err := h.paymentUC.ListPayments(r.Context(), status, limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list payments", err)
		return
	}

	result := make([]*dto.PaymentResponse, len(payments))
	for i, p := range payments {
		result[i] = dto.PaymentFromDomain(p)
	}
	writeJSON(w, http.StatusOK, result)
}

// Update edits a pending payment.
func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	input, ok := decodePayment(w, r)
	if !ok {
		return
	}

	payment, err := h.paymentUC.EditPayment(r.Context(), usecase.EditPaymentInput{
		ID:                 chi.URLParam(r, "id"),
		CreatePaymentInput: input,
	})
	if err != nil {
		writeDomainError(w, "failed to edit payment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentFromDomain(payment))
}

// Verify verifies a pending payment and settles it.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	result, err := h.paymentUC.VerifyPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to verify payment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VerifyPaymentFromResult(result))
}

// Reject rejects a pending payment.
func (h *PaymentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req dto.RejectPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	payment, err := h.paymentUC.RejectPayment(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeDomainError(w, "failed to reject payment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentFromDomain(payment))
}

// Delete removes a payment, reversing its settlement if verified.
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.paymentUC.DeletePayment(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "failed to delete payment", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodePayment(w http.ResponseWriter, r *http.Request) (usecase.CreatePaymentInput, bool) {
	var req dto.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return usecase.CreatePaymentInput{}, false
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment", err.Error())
		return usecase.CreatePaymentInput{}, false
	}
	return input, true
}
