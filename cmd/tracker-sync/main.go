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

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"tracker-sync/internal/auth"
	"tracker-sync/internal/client"
	"tracker-sync/internal/config"
	"tracker-sync/internal/db"
	httphandler "tracker-sync/internal/http"
	"tracker-sync/internal/http/middleware"
	"tracker-sync/internal/logger"
	"tracker-sync/internal/notify"
	"tracker-sync/internal/repository"
	"tracker-sync/internal/scrape"
	"tracker-sync/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLogger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	parser := scrape.NewHTMLParser()
	portal := client.NewPortalClient(cfg, parser, appLogger)
	if cfg.Portal.BaseURL == "" {
		appLogger.Warn().Msg("PORTAL_BASE_URL not set, auto mode will fail until it is configured")
	}

	var notifier service.RunNotifier
	if cfg.Notify.NatsURL != "" {
		natsNotifier, err := notify.Connect(cfg.Notify.NatsURL, cfg.Notify.Subject, appLogger)
		if err != nil {
			return err
		}
		defer natsNotifier.Close()
		notifier = natsNotifier
	}

	syncService := service.NewSyncService(repository.NewFleetStore(database), portal, parser, notifier, appLogger)

	var tokenParser *auth.Parser
	if cfg.Auth.AccessSecret != "" {
		tokenParser = auth.NewParser(cfg.Auth.AccessSecret)
	} else {
		appLogger.Warn().Msg("JWT_ACCESS_SECRET not set, sync endpoint is unauthenticated")
	}

	handler := httphandler.NewHandler(syncService, appLogger)
	router := httphandler.NewRouter(handler, middleware.Auth(tokenParser), cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "tracker-sync"),
		ReadHeaderTimeout: 10 * time.Second,
		// auto runs probe the portal sequentially
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().Str("addr", addr).Msg("starting tracker sync service")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		appLogger.Info().Msg("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
