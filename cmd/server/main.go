package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/dealsync/internal/adapter/http"
	"github.com/iho/dealsync/internal/adapter/http/handler"
	apimiddleware "github.com/iho/dealsync/internal/adapter/http/middleware"
	"github.com/iho/dealsync/internal/adapter/ledgerapi"
	postgresRepo "github.com/iho/dealsync/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/dealsync/internal/adapter/repository/redis"
	"github.com/iho/dealsync/internal/infrastructure/config"
	"github.com/iho/dealsync/internal/infrastructure/logger"
	"github.com/iho/dealsync/internal/infrastructure/metrics"
	"github.com/iho/dealsync/internal/infrastructure/postgres"
	"github.com/iho/dealsync/internal/infrastructure/redis"
	"github.com/iho/dealsync/internal/usecase"
)

const limiterCleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	})
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	appLogger.Info().Msg("connected to postgres")

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		appLogger.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := redis.NewClient(ctx, redis.Config{URL: cfg.RedisURL, PoolSize: cfg.RedisPoolSize})
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	appLogger.Info().Msg("connected to redis")

	m := metrics.New(prometheus.DefaultRegisterer)

	// Upstream ledger
	credentials := ledgerapi.NewStaticCredentials(cfg.LedgerAccessToken, cfg.LedgerTokenExpiresAt)
	ledgerClient := newLedgerClient(cfg, credentials, appLogger, m)

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	syncRunRepo := postgresRepo.NewSyncRunRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	runLocker := redisRepo.NewRunLocker(redisClient, appLogger)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	// Use cases
	resolver := usecase.NewReferenceResolver(usecase.ReferenceResolverConfig{
		Client:             ledgerClient,
		TTL:                cfg.ReferenceCacheTTL,
		MissReloadInterval: cfg.ReferenceMissReload,
		Logger:             appLogger,
		Metrics:            m,
	})
	fetcher := usecase.NewDealFetcher(usecase.DealFetcherConfig{
		Client:         ledgerClient,
		Logger:         appLogger,
		PageSize:       cfg.LedgerPageSize,
		MaxPages:       cfg.LedgerMaxPages,
		BatchSize:      cfg.DetailBatchSize,
		BatchPause:     cfg.DetailBatchPause,
		LongPauseEvery: cfg.DetailLongPauseEvery,
		LongPause:      cfg.DetailLongPause,
		CallTimeout:    ledgerClient.CallBudget(),
	})
	reconciler := usecase.NewReconciliationUseCase(usecase.ReconciliationConfig{
		TxManager:        txManager,
		Repo:             transactionRepo,
		Cleaner:          postgresRepo.NewAllocationCleaner(appLogger),
		Retrier:          postgresRepo.NewRetrier(appLogger),
		IDGen:            idGen,
		Logger:           appLogger,
		Metrics:          m,
		ApplyConcurrency: cfg.ApplyConcurrency,
	})
	syncUC := usecase.NewSyncUseCase(usecase.SyncConfig{
		Credentials: credentials,
		Fetcher:     fetcher,
		Resolver:    resolver,
		Reconciler:  reconciler,
		Runs:        syncRunRepo,
		Locker:      runLocker,
		IDGen:       idGen,
		Logger:      appLogger,
		Metrics:     m,
		LockTTL:     cfg.SyncLockTTL,
	})

	// HTTP
	rateLimiter := apimiddleware.NewRateLimiter(cfg.HTTPRateLimit, cfg.HTTPRateBurst)
	rateLimiter.OnLimited = m.RateLimited

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		SyncHandler: handler.NewSyncHandler(syncUC, appLogger),
		HealthHandler: handler.NewHealthHandler(
			pool,
			handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		MetricsHandler:   promhttp.Handler(),
		Logger:           appLogger,
	})

	go cleanupLimiters(ctx, rateLimiter, limiterCleanupInterval)

	server := newHTTPServer(cfg, router)

	go func() {
		appLogger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server stopped")
}

func newLedgerClient(cfg *config.Config, credentials usecase.CredentialSource, logger zerolog.Logger, observer ledgerapi.Observer) *ledgerapi.Client {
	return ledgerapi.NewClient(ledgerapi.Config{
		BaseURL:        cfg.LedgerBaseURL,
		Credentials:    credentials,
		RequestTimeout: cfg.LedgerRequestTimeout,
		RateLimit:      cfg.LedgerRateLimit,
		RateBurst:      cfg.LedgerRateBurst,
		MaxRetries:     cfg.LedgerMaxRetries,
		Logger:         logger,
		Observer:       observer,
	})
}

func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}

// cleanupLimiters resets per-client rate limiters every interval until ctx ends.
func cleanupLimiters(ctx context.Context, rl *apimiddleware.RateLimiter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupLimiters()
		}
	}
}
