package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/blockedby/dispatch-os/internal/config"
	"github.com/blockedby/dispatch-os/internal/credentials"
	"github.com/blockedby/dispatch-os/internal/database"
	"github.com/blockedby/dispatch-os/internal/dispatcher"
	"github.com/blockedby/dispatch-os/internal/ledger"
	"github.com/blockedby/dispatch-os/internal/logger"
	"github.com/blockedby/dispatch-os/internal/mailer"
	"github.com/blockedby/dispatch-os/internal/recipients"
	"github.com/blockedby/dispatch-os/internal/scheduler"
	"github.com/blockedby/dispatch-os/internal/web"
	"github.com/blockedby/dispatch-os/internal/web/handlers"
)

func main() {
	// 1. Load config
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting bulk dispatch service")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Open database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	// 5. Storage + transport resolution
	ledgerRepo := ledger.NewRepository(db.GORM)
	credStore := credentials.NewStore(db.GORM)

	// one cap shared by every resolved transport
	limiter := rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst)
	resolver := credentials.NewResolver(
		credStore,
		credentials.SMTPConfig{Host: cfg.SMTPHost, Port: cfg.SMTPPort},
		func(t mailer.Transport) mailer.Transport { return mailer.ThrottledWith(t, limiter) },
	)

	// 6. Dispatch core
	runner := dispatcher.NewRunner(resolver, ledgerRepo, log)
	sched := scheduler.New(runner, log)

	// 7. Web server
	srv := web.NewServer(&web.Config{Port: cfg.HTTPPort}, &web.Handlers{
		Dispatch:    handlers.NewDispatchHandler(sched, recipients.NewSheetFetcher(), cfg.DefaultDelay, log),
		Jobs:        handlers.NewJobsHandler(sched),
		Stats:       handlers.NewStatsHandler(ledgerRepo),
		Credentials: handlers.NewCredentialsHandler(credStore, log),
	})

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("http server listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	<-ctx.Done()

	// 8. Drain: stop accepting, wait for in-flight runs
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("scheduler drain timed out")
	}

	log.Info().Msg("bulk dispatch service stopped")
}
