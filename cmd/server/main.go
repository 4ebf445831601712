package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/corebank/internal/adapter/http"
	"github.com/iho/corebank/internal/adapter/http/handler"
	"github.com/iho/corebank/internal/adapter/mirror"
	postgresRepo "github.com/iho/corebank/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/corebank/internal/adapter/repository/redis"
	"github.com/iho/corebank/internal/infrastructure/config"
	"github.com/iho/corebank/internal/infrastructure/logger"
	"github.com/iho/corebank/internal/infrastructure/metrics"
	"github.com/iho/corebank/internal/infrastructure/postgres"
	"github.com/iho/corebank/internal/infrastructure/redis"
	"github.com/iho/corebank/internal/usecase"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "corebank",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns, cfg.DatabaseTimeout)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	journalRepo := postgresRepo.NewJournalRepository(pool)
	txnRepo := postgresRepo.NewTransactionRepository(pool)
	transferRepo := postgresRepo.NewTransferRepository(pool)
	recurringRepo := postgresRepo.NewRecurringTransferRepository(pool)
	idempotencyRepo := postgresRepo.NewIdempotencyRepository(pool)
	cache := redisRepo.NewCache(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Mirror pipeline. Disabled mirroring still exercises the same queue,
	// it just logs instead of producing to Kafka.
	var publisher usecase.MirrorPublisher
	if cfg.MirrorEnabled {
		kafkaPublisher := mirror.NewKafkaPublisher(cfg.KafkaBrokers, cfg.MirrorTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.MirrorTopic).Msg("ledger mirror enabled")
	} else {
		publisher = mirror.NewLogPublisher(log)
	}

	notifier := usecase.NewMirrorNotifier(usecase.MirrorConfig{
		Publisher:  publisher,
		Logger:     log,
		Metrics:    m,
		QueueSize:  cfg.MirrorQueueSize,
		MaxRetries: cfg.MirrorMaxRetries,
	})

	// Use cases
	ledgerUC := usecase.NewLedgerUseCase(txManager, accountRepo, journalRepo, txnRepo, idGen, cfg.CashAccountID).
		WithMaxAttempts(cfg.MaxOptimisticRetries).
		WithCache(cache).
		WithNotifier(notifier).
		WithRetrier(postgresRepo.NewRetrier(log)).
		WithMetrics(m)
	accountUC := usecase.NewAccountUseCase(accountRepo, idGen).
		WithMetrics(m)
	transferUC := usecase.NewTransferUseCase(transferRepo, recurringRepo, ledgerUC, idGen, log).
		WithNotifier(notifier).
		WithMetrics(m)
	guard := usecase.NewIdempotencyGuard(idempotencyRepo, cfg.IdempotencyTTL).
		WithMetrics(m)

	sweeper := usecase.NewSweeper(usecase.SweeperConfig{
		Transfers: transferUC,
		Guard:     guard,
		Logger:    log,
		Metrics:   m,
		Interval:  cfg.SweepInterval,
		BatchSize: cfg.SweepBatchSize,
	})

	go func() {
		if err := notifier.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("mirror notifier stopped")
		}
	}()
	go func() {
		if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("sweeper stopped")
		}
	}()

	// HTTP surface
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:  handler.NewAccountHandler(accountUC),
		LedgerHandler:   handler.NewLedgerHandler(ledgerUC, guard),
		TransferHandler: handler.NewTransferHandler(transferUC, guard),
		HealthHandler:   handler.NewHealthHandler(pool, redisClient),
		Logger:          log,
		Metrics:         m,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
