package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/infrastructure/metrics"
)

// runInTx runs fn inside one transaction, retrying the whole attempt when a
// retrier is configured. fn must not begin a transaction of its own.
func runInTx(ctx context.Context, txManager TransactionManager, retrier Retrier, fn func(ctx context.Context, tx Transaction) error) error {
	attempt := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	}

	if retrier == nil {
		return attempt()
	}
	return retrier.Retry(ctx, attempt)
}

// observer bundles the optional logger and metrics shared by the use cases.
type observer struct {
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func newObserver() observer {
	return observer{logger: zerolog.Nop()}
}

func (o observer) observe(operation string, start time.Time, err error) {
	if o.metrics == nil {
		return
	}
	o.metrics.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		o.metrics.SettlementErrors.WithLabelValues(operation, errorReason(err)).Inc()
	}
}

// errorReason maps an error to a low-cardinality metric label.
func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoExchangeRate):
		return "no_exchange_rate"
	case errors.Is(err, domain.ErrCurrencyMismatch):
		return "currency_mismatch"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, domain.ErrTransferAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidCurrency):
		return "invalid_input"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}

// actorName returns the identity of the caller or SystemActor.
func actorName(ctx context.Context) string {
	if actor, ok := domain.ActorFromContext(ctx); ok && actor.ID != "" {
		return actor.ID
	}
	return SystemActor
}
