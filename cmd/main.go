// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/slotswapper/slotswapper/internal/auth"
	"github.com/slotswapper/slotswapper/internal/config"
	"github.com/slotswapper/slotswapper/internal/database"
	"github.com/slotswapper/slotswapper/internal/handler"
	"github.com/slotswapper/slotswapper/internal/repository"
	"github.com/slotswapper/slotswapper/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx := context.Background()

	// ── 1. Open the store ────────────────────────────────────────────────
	var store repository.Store
	switch cfg.Database.Driver {
	case "memory":
		store = repository.NewMemoryStore()
		logger.Info().Msg("using in-memory store")
	default:
		pool, err := database.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to database")
		}
		defer pool.Close()
		store = repository.NewPostgresStore(pool, cfg.Database.LockTimeout)
		logger.Info().Msg("connected to PostgreSQL")
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	issuer := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Expiry)
	authSvc := service.NewAuthService(store, issuer)
	eventSvc := service.NewEventService(store)
	swapSvc := service.NewSwapService(store, logger)

	router := handler.NewRouter(
		logger,
		issuer,
		handler.NewAuthHandler(authSvc),
		handler.NewEventHandler(eventSvc),
		handler.NewSwapHandler(swapSvc),
	)

	// ── 3. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
