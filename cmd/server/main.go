package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/classpoll/classpoll/internal/adapters/http"
	"github.com/classpoll/classpoll/internal/app"
	"github.com/classpoll/classpoll/internal/config"
	"github.com/classpoll/classpoll/internal/history"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Poll history is optional; the live path never depends on it.
	var store *history.Store
	store, err = history.Open(cfg.HistoryDB)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.HistoryDB).Msg("history store unavailable")
		store = nil
	}

	coord := &app.Coordinator{
		Registry: app.NewRegistry(),
		Sessions: app.NewSessionManager(),
		Policy:   app.SimplePolicy{},
	}
	if store != nil {
		coord.Archiver = store
	}

	r := router.SetupRouter(ctx, cfg, coord, store)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("classpoll server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if store != nil {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("history store close")
		}
	}
	log.Info().Msg("Server exited gracefully")
}
