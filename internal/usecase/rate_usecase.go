package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/infrastructure/metrics"
)

const (
	rateCachePrefix     = "rate:"
	rateGenerationKey   = "rate:generation"
	defaultRateGenToken = "0"
)

// ExchangeRateUseCase resolves and manages the date-scoped VES per USD rates.
type ExchangeRateUseCase struct {
	rateRepo ExchangeRateRepository
	cache    Cache
	cacheTTL time.Duration
	obs      observer
}

// NewExchangeRateUseCase creates a new ExchangeRateUseCase.
func NewExchangeRateUseCase(rateRepo ExchangeRateRepository) *ExchangeRateUseCase {
	return &ExchangeRateUseCase{
		rateRepo: rateRepo,
		cacheTTL: DefaultRateCacheTTL,
		obs:      newObserver(),
	}
}

// WithCache enables caching of resolved rates.
func (uc *ExchangeRateUseCase) WithCache(cache Cache, ttl time.Duration) *ExchangeRateUseCase {
	uc.cache = cache
	if ttl > 0 {
		uc.cacheTTL = ttl
	}
	return uc
}

// WithLogger sets the logger.
func (uc *ExchangeRateUseCase) WithLogger(logger zerolog.Logger) *ExchangeRateUseCase {
	uc.obs.logger = logger
	return uc
}

// WithMetrics sets the metrics.
func (uc *ExchangeRateUseCase) WithMetrics(m *metrics.Metrics) *ExchangeRateUseCase {
	uc.obs.metrics = m
	return uc
}

// RateFor returns the rate of date, else the latest rate before it, else zero.
// A later rate is never used for an earlier date.
func (uc *ExchangeRateUseCase) RateFor(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	day := domain.DateOnly(date)

	var key string
	if uc.cache != nil {
		key = rateCachePrefix + uc.generation(ctx) + ":" + day.Format(domain.DateLayout)
		if cached, ok := uc.cached(ctx, key); ok {
			uc.countLookup("hit")
			return cached, nil
		}
		uc.countLookup("miss")
	}

	rate := decimal.Zero
	found, err := uc.rateRepo.FindOnOrBefore(ctx, day)
	switch {
	case err == nil:
		rate = found.Rate
	case errors.Is(err, domain.ErrRateNotFound):
	default:
		return decimal.Zero, err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, []byte(rate.String()), uc.cacheTTL); err != nil {
			uc.obs.logger.Warn().Err(err).Str("key", key).Msg("rate cache set failed")
		}
	}

	return rate, nil
}

// AddRate records the rate in effect from date on.
func (uc *ExchangeRateUseCase) AddRate(ctx context.Context, date time.Time, rate decimal.Decimal) (*domain.ExchangeRate, error) {
	er := &domain.ExchangeRate{
		Date:      domain.DateOnly(date),
		Rate:      rate,
		CreatedAt: time.Now().UTC(),
	}
	if err := er.Validate(); err != nil {
		return nil, err
	}

	if err := uc.rateRepo.Create(ctx, er); err != nil {
		return nil, err
	}
	uc.invalidate(ctx)

	uc.obs.logger.Info().Str("date", er.Date.Format(domain.DateLayout)).Str("rate", rate.String()).Msg("exchange rate added")
	return er, nil
}

// DeleteRate removes the rate recorded for date.
func (uc *ExchangeRateUseCase) DeleteRate(ctx context.Context, date time.Time) error {
	if err := uc.rateRepo.Delete(ctx, domain.DateOnly(date)); err != nil {
		return err
	}
	uc.invalidate(ctx)
	return nil
}

// ListRates lists recorded rates, newest first.
func (uc *ExchangeRateUseCase) ListRates(ctx context.Context, limit, offset int) ([]*domain.ExchangeRate, error) {
	limit, offset = domain.ClampPage(limit, offset)
	return uc.rateRepo.List(ctx, limit, offset)
}

func (uc *ExchangeRateUseCase) cached(ctx context.Context, key string) (decimal.Decimal, bool) {
	raw, err := uc.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			uc.obs.logger.Warn().Err(err).Str("key", key).Msg("rate cache get failed")
		}
		return decimal.Zero, false
	}

	rate, err := decimal.NewFromString(string(raw))
	if err != nil {
		uc.obs.logger.Warn().Err(err).Str("key", key).Msg("corrupt cached rate")
		return decimal.Zero, false
	}
	return rate, true
}

// generation returns the token that namespaces cached lookups. Rotating it
// drops every cached fallback at once.
func (uc *ExchangeRateUseCase) generation(ctx context.Context) string {
	raw, err := uc.cache.Get(ctx, rateGenerationKey)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			uc.obs.logger.Warn().Err(err).Msg("rate cache generation lookup failed")
		}
		return defaultRateGenToken
	}
	return string(raw)
}

func (uc *ExchangeRateUseCase) invalidate(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	token := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := uc.cache.Set(ctx, rateGenerationKey, []byte(token), 0); err != nil {
		uc.obs.logger.Warn().Err(err).Msg("rate cache invalidation failed")
	}
}

func (uc *ExchangeRateUseCase) countLookup(result string) {
	if uc.obs.metrics != nil {
		uc.obs.metrics.RateLookups.WithLabelValues(result).Inc()
	}
}
