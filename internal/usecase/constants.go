package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyPendingMarker is stored under a claimed key until the response is known
	IdempotencyPendingMarker = "processing"

	// DefaultRateCacheTTL is how long resolved exchange rates are cached
	DefaultRateCacheTTL = 10 * time.Minute

	// SystemActor is recorded as verifier when the request carries no identity
	SystemActor = "system"

	// FundTransferCategory is the category of transfer completion entries
	FundTransferCategory = "fund_transfer"
)
