package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/branchledger/internal/adapter/http"
	"github.com/iho/branchledger/internal/adapter/http/handler"
	"github.com/iho/branchledger/internal/adapter/http/middleware"
	"github.com/iho/branchledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/branchledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/branchledger/internal/adapter/repository/redis"
	"github.com/iho/branchledger/internal/infrastructure/auth"
	"github.com/iho/branchledger/internal/infrastructure/config"
	"github.com/iho/branchledger/internal/infrastructure/eventpublisher"
	"github.com/iho/branchledger/internal/infrastructure/logger"
	"github.com/iho/branchledger/internal/infrastructure/metrics"
	"github.com/iho/branchledger/internal/infrastructure/postgres"
	"github.com/iho/branchledger/internal/infrastructure/redis"
	"github.com/iho/branchledger/internal/usecase"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	go func() {
		if err := a.publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()
	go cleanupLimiters(ctx, a.limiter, time.Minute)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.Storage).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// app is the wired service: storage, use cases and the HTTP router.
type app struct {
	router    http.Handler
	limiter   *middleware.RateLimiter
	publisher *eventpublisher.EventPublisher
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// repositories groups the storage backend selected by configuration.
type repositories struct {
	txManager usecase.TransactionManager
	accounts  usecase.AccountRepository
	entries   usecase.EntryRepository
	rates     usecase.ExchangeRateRepository
	payments  usecase.PaymentRepository
	expenses  usecase.ExpenseRepository
	transfers usecase.FundTransferRepository
	outbox    usecase.OutboxRepository
	idGen     usecase.IDGenerator
	retrier   usecase.Retrier
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}

	checks := map[string]handler.Pinger{}

	var repos repositories
	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		log.Info().Msg("connected to postgres")

		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		checks["postgres"] = pool
		repos = repositories{
			txManager: postgresRepo.NewTxManager(pool),
			accounts:  postgresRepo.NewAccountRepository(pool),
			entries:   postgresRepo.NewEntryRepository(pool),
			rates:     postgresRepo.NewExchangeRateRepository(pool),
			payments:  postgresRepo.NewPaymentRepository(pool),
			expenses:  postgresRepo.NewExpenseRepository(pool),
			transfers: postgresRepo.NewFundTransferRepository(pool),
			outbox:    postgresRepo.NewOutboxRepository(pool),
			idGen:     postgresRepo.NewULIDGenerator(),
			retrier:   postgresRepo.NewRetrier().WithLogger(log),
		}
	default:
		store := memory.NewStore()
		repos = repositories{
			txManager: memory.NewTxManager(store),
			accounts:  memory.NewAccountRepository(store),
			entries:   memory.NewEntryRepository(store),
			rates:     memory.NewExchangeRateRepository(store),
			payments:  memory.NewPaymentRepository(store),
			expenses:  memory.NewExpenseRepository(store),
			transfers: memory.NewFundTransferRepository(store),
			outbox:    memory.NewOutboxRepository(store),
			idGen:     postgresRepo.NewULIDGenerator(),
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	rates := usecase.NewExchangeRateUseCase(repos.rates).WithLogger(log).WithMetrics(m)

	var idempotencyStore usecase.IdempotencyStore
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, redis.Config{URL: cfg.RedisURL})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		log.Info().Msg("connected to redis")

		checks["redis"] = handler.PingFunc(redis.HealthCheck(client))
		rates.WithCache(redisRepo.NewCache(client), cfg.RateCacheTTL)
		idempotencyStore = redisRepo.NewIdempotencyStore(client)
	}

	accounts := usecase.NewAccountUseCase(repos.txManager, repos.accounts).WithLogger(log)
	ledger := usecase.NewLedgerUseCase(accounts, repos.entries, repos.idGen)
	transfers := usecase.NewFundTransferUseCase(repos.txManager, accounts, ledger, repos.transfers, repos.outbox, repos.idGen).
		WithLogger(log).
		WithMetrics(m)
	settlement := usecase.NewSettlementUseCase(repos.txManager, accounts, ledger, rates, transfers, repos.outbox, repos.idGen).
		WithLogger(log).
		WithMetrics(m)
	payments := usecase.NewPaymentUseCase(repos.txManager, repos.payments, accounts, rates, settlement, repos.outbox, repos.idGen).
		WithLogger(log).
		WithMetrics(m)
	expenses := usecase.NewExpenseUseCase(repos.txManager, repos.expenses, settlement, repos.idGen).
		WithLogger(log)
	recon := usecase.NewReconciliationUseCase(repos.accounts, repos.entries)

	if repos.retrier != nil {
		transfers.WithRetrier(repos.retrier)
		settlement.WithRetrier(repos.retrier)
		payments.WithRetrier(repos.retrier)
		expenses.WithRetrier(repos.retrier)
	}

	created, err := accounts.Provision(ctx, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to provision accounts: %w", err)
	}
	log.Info().Int("created", created).Int("catalog", len(catalog.Accounts)).Msg("accounts provisioned")

	var publisher eventpublisher.Publisher = eventpublisher.NewLogPublisher(log)
	if cfg.AMQPURL != "" {
		conn, ch, err := eventpublisher.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to amqp: %w", err)
		}
		a.closers = append(a.closers, func() {
			_ = ch.Close()
			_ = conn.Close()
		})
		log.Info().Str("exchange", cfg.AMQPExchange).Msg("connected to amqp")
		publisher = eventpublisher.NewAMQPPublisher(ch, cfg.AMQPExchange)
	}
	a.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: repos.outbox,
		Publisher:  publisher,
		Logger:     log,
		Metrics:    m,
		Interval:   cfg.OutboxInterval,
	})

	var jwtManager *auth.JWTManager
	if cfg.AuthEnabled {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	}

	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)

	a.router = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:   handler.NewAccountHandler(accounts),
		EntryHandler:     handler.NewEntryHandler(ledger),
		RateHandler:      handler.NewRateHandler(rates),
		PaymentHandler:   handler.NewPaymentHandler(payments),
		ExpenseHandler:   handler.NewExpenseHandler(expenses),
		TransferHandler:  handler.NewTransferHandler(transfers),
		LedgerHandler:    handler.NewLedgerHandler(recon),
		HealthHandler:    handler.NewHealthHandler(checks),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      a.limiter,
		JWTManager:       jwtManager,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:           log,
	})

	return a, nil
}

// cleanupLimiters forgets clients idle for a whole interval, every interval,
// until ctx is done.
func cleanupLimiters(ctx context.Context, limiter *middleware.RateLimiter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep(interval)
		}
	}
}
