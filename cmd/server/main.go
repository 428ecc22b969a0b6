// Package main is the entry point for the banko API server.
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

	"banko/internal/auth"
	"banko/internal/config"
	"banko/internal/handler"
	"banko/internal/notifier"
	"banko/internal/pkg/db"
	"banko/internal/pkg/lock"
	"banko/internal/repository"
	"banko/internal/service"
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
	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	roomRepo := repository.NewRoomRepository(dbPool.Pool)
	playerRepo := repository.NewPlayerRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	loanRepo := repository.NewLoanRepository(dbPool.Pool)
	requestRepo := repository.NewRequestRepository(dbPool.Pool)
	eventRepo := repository.NewEventRepository(dbPool.Pool)

	// Initialize room lock and realtime hub
	roomLock := lock.NewRoomLock()
	hub := notifier.NewHub()

	// Initialize services
	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	registryService := service.NewRegistryService(dbPool.Pool, roomRepo, playerRepo, cfg.Room, hub)
	ledgerService := service.NewLedgerService(dbPool.Pool, roomRepo, playerRepo, txRepo, roomLock, hub)
	loanService := service.NewLoanService(dbPool.Pool, roomRepo, playerRepo, txRepo, loanRepo, roomLock, hub)
	requestService := service.NewRequestService(dbPool.Pool, roomRepo, playerRepo, txRepo, requestRepo, roomLock, hub)
	diceService := service.NewDiceService(roomRepo, playerRepo, eventRepo, hub)
	activityService := service.NewActivityService(txRepo, eventRepo, cfg.Room.FeedLimit)

	router := handler.NewRouter(&cfg.Server, handler.Services{
		Auth:     authService,
		Registry: registryService,
		Ledger:   ledgerService,
		Loans:    loanService,
		Requests: requestService,
		Dice:     diceService,
		Activity: activityService,
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server is starting...")
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
