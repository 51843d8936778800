package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	handler "github.com/neomorfeo/garagedesk/internal/adapter/http"
	"github.com/neomorfeo/garagedesk/internal/adapter/otel"
	"github.com/neomorfeo/garagedesk/internal/app"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the onboarding event worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(*configPath)
		},
	}
}

// run starts the server and blocks until SIGINT or SIGTERM.
func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.EphemeralSecret {
		slog.Warn("JWT_SECRET is not set; using a random secret, tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	providers, err := otel.Setup(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer shutdownTelemetry(providers)

	// --- Adapters (out) ---
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := wire(ctx, cfg, store)
	if err != nil {
		return err
	}

	// The worker outlives the signal context so queued events drain on Stop.
	if err := svc.river.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.river.Stop(stopCtx); err != nil {
			slog.Error("river stop", "error", err)
		}
	}()

	// --- Application ---
	sessions := app.NewSetupSessions(svc.newMachine, cfg.SetupSessionTTL.Duration)

	// --- Adapters (in) ---
	router := handler.NewRouter(handler.Deps{
		Onboarding:      svc.onboarding,
		Auth:            svc.auth,
		Guard:           svc.guard,
		Sessions:        sessions,
		Store:           svc.store,
		ServiceName:     cfg.Telemetry.ServiceName,
		Version:         version,
		CookieSecure:    cfg.CookieSecure,
		TokenTTL:        cfg.TokenTTL.Duration,
		SetupSessionTTL: cfg.SetupSessionTTL.Duration,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("garagedesk listening", "port", cfg.Port, "docs", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	slog.Info("stopped")
	return nil
}
