package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/branchledger/internal/adapter/http/handler"
	"github.com/iho/branchledger/internal/adapter/http/middleware"
	"github.com/iho/branchledger/internal/infrastructure/auth"
	"github.com/iho/branchledger/internal/infrastructure/metrics"
	"github.com/iho/branchledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler  *handler.AccountHandler
	EntryHandler    *handler.EntryHandler
	RateHandler     *handler.RateHandler
	PaymentHandler  *handler.PaymentHandler
	ExpenseHandler  *handler.ExpenseHandler
	TransferHandler *handler.TransferHandler
	LedgerHandler   *handler.LedgerHandler
	HealthHandler   *handler.HealthHandler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	// JWTManager enables bearer authentication on /api/v1 when set.
	JWTManager     *auth.JWTManager
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// Deleting history is reserved to admins once authentication is on.
	adminOnly := func(r chi.Router) chi.Router {
		if cfg.JWTManager == nil {
			return r
		}
		return r.With(middleware.RequireAdmin)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTManager != nil {
			r.Use(middleware.AuthMiddleware(cfg.JWTManager))
			r.Use(middleware.RequireWriter)
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore).
				WithTTL(cfg.IdempotencyTTL).
				WithLogger(cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Branch accounts and their ledger
		r.Route("/branches/{branch}", func(r chi.Router) {
			r.Get("/accounts", cfg.AccountHandler.List)
			r.Get("/accounts/{type}", cfg.AccountHandler.Get)
			r.Get("/entries", cfg.EntryHandler.ListByBranch)
		})

		// Exchange rates
		r.Route("/exchange-rates", func(r chi.Router) {
			r.Get("/", cfg.RateHandler.List)
			r.Post("/", cfg.RateHandler.Add)
			r.Get("/resolve", cfg.RateHandler.Resolve)
			adminOnly(r).Delete("/{date}", cfg.RateHandler.Delete)
		})

		// Payments
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", cfg.PaymentHandler.Create)
			r.Get("/", cfg.PaymentHandler.List)
			r.Get("/{id}", cfg.PaymentHandler.Get)
			r.Put("/{id}", cfg.PaymentHandler.Update)
			r.Post("/{id}/verify", cfg.PaymentHandler.Verify)
			r.Post("/{id}/reject", cfg.PaymentHandler.Reject)
			r.Delete("/{id}", cfg.PaymentHandler.Delete)
		})

		// Expenses
		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", cfg.ExpenseHandler.Create)
			r.Get("/{id}", cfg.ExpenseHandler.Get)
			r.Put("/{id}", cfg.ExpenseHandler.Update)
			r.Delete("/{id}", cfg.ExpenseHandler.Delete)
		})

		// Inter-branch fund transfers
		r.Route("/fund-transfers", func(r chi.Router) {
			r.Get("/", cfg.TransferHandler.List)
			r.Get("/summary", cfg.TransferHandler.Summary)
			r.Post("/complete-batch", cfg.TransferHandler.CompleteBatch)
			r.Get("/{id}", cfg.TransferHandler.Get)
			r.Post("/{id}/complete", cfg.TransferHandler.Complete)
			adminOnly(r).Delete("/{id}", cfg.TransferHandler.Delete)
		})

		r.Get("/ledger/reconciliation", cfg.LedgerHandler.Reconcile)
	})

	return r
}
