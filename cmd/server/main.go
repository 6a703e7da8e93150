// Package main is the entry point for the points engine HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"task-points/internal/cache"
	"task-points/internal/config"
	"task-points/internal/handler"
	"task-points/internal/pkg/db"
	"task-points/internal/pkg/lock"
	"task-points/internal/repository"
	"task-points/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := repository.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	ruleRepo := repository.NewRuleRepository(dbPool.Pool)
	configRepo := repository.NewBalanceConfigRepository(dbPool.Pool)
	dailyRepo := repository.NewDailyRecordRepository(dbPool.Pool)
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)
	exchangeRepo := repository.NewExchangeRepository(dbPool.Pool)
	redemptionRepo := repository.NewRedemptionRepository(dbPool.Pool)

	// Rule and config reads go through the Redis cache when configured
	ruleCache, err := cache.New(&cfg.Redis, ruleRepo, configRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer ruleCache.Close()

	// Initialize services
	limits := service.NewLimitService(dailyRepo, ruleCache, ruleCache, service.Limits{
		DailyCap:            cfg.Points.DailyCap,
		DefaultWeeklyLimit:  cfg.Points.DefaultWeeklyLimit,
		DefaultGameTime:     cfg.Points.DefaultGameTime,
		DefaultMinutesRatio: cfg.Points.DefaultMinutesRatio,
	})
	userLock := lock.NewUserLock()
	engine := service.NewEngine(dbPool.Pool, limits, userLock, cfg.Points.RetryAttempts, cfg.Points.RetryBackoff)
	computeSvc := service.NewComputeService(userRepo, ruleCache)
	summarySvc := service.NewSummaryService(userRepo, dailyRepo, ledgerRepo, exchangeRepo, redemptionRepo, ruleCache, limits)
	adminSvc := service.NewAdminService(userRepo, ruleRepo, configRepo, dailyRepo, ruleCache)

	h := handler.New(computeSvc, limits, engine, summarySvc, adminSvc)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Server is starting...")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}
