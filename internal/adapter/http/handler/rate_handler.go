package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/adapter/http/dto"
	"github.com/iho/branchledger/internal/domain"
)

// RateService defines the behavior needed by RateHandler.
type RateService interface {
	RateFor(ctx context.Context, date time.Time) (decimal.Decimal, error)
	AddRate(ctx context.Context, date time.Time, rate decimal.Decimal) (*domain.ExchangeRate, error)
	DeleteRate(ctx context.Context, date time.Time) error
	ListRates(ctx context.Context, limit, offset int) ([]*domain.ExchangeRate, error)
}

// RateHandler handles exchange rate HTTP requests.
type RateHandler struct {
	rateUC RateService
}

// NewRateHandler creates a new RateHandler.
func NewRateHandler(rateUC RateService) *RateHandler {
	return &RateHandler{rateUC: rateUC}
}

// Add records a rate.
func (h *RateHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req dto.AddRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	date, err := req.ParseDate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	rate, err := h.rateUC.AddRate(r.Context(), date, req.Rate)
	if err != nil {
		writeDomainError(w, "failed to add exchange rate", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RateFromDomain(rate))
}

// List lists recorded rates, newest first.
func (h *RateHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	rates, err := h.rateUC.ListRates(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list exchange rates", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RatesFromDomain(rates))
}

// Resolve returns the rate in effect on the date query parameter. A zero
// rate means none is known.
func (h *RateHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	rate, err := h.rateUC.RateFor(r.Context(), date)
	if err != nil {
		writeDomainError(w, "failed to resolve exchange rate", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RateResponse{
		Date: date.Format(domain.DateLayout),
		Rate: rate,
	})
}

// Delete removes the rate of a date.
func (h *RateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	date, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	if err := h.rateUC.DeleteRate(r.Context(), date); err != nil {
		writeDomainError(w, "failed to delete exchange rate", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseDateParam(s string) (time.Time, error) {
	if s == "" {
		return domain.DateOnly(time.Now().UTC()), nil
	}
	return domain.ParseDate(s)
}
