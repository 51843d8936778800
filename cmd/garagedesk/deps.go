package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	fsmadapter "github.com/neomorfeo/garagedesk/internal/adapter/fsm"
	"github.com/neomorfeo/garagedesk/internal/adapter/otel"
	riveradapter "github.com/neomorfeo/garagedesk/internal/adapter/river"
	"github.com/neomorfeo/garagedesk/internal/adapter/sqlite"
	"github.com/neomorfeo/garagedesk/internal/adapter/token"
	"github.com/neomorfeo/garagedesk/internal/app"
	"github.com/neomorfeo/garagedesk/internal/config"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

// loadConfig reads the configuration and installs the process logger.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(config.NewLogger(cfg.Log, os.Stderr))
	return cfg, nil
}

// openStore opens the otelsql-instrumented database and migrates it.
func openStore(cfg config.Config) (*sqlite.Store, error) {
	db, err := otel.OpenDB(cfg.DatabasePath, sqlite.Configure)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	return store, nil
}

// services is the application layer wired over one store.
type services struct {
	store      domain.Store
	river      *riveradapter.Client
	newMachine func() *app.Machine
	auth       *app.Auth
	onboarding *app.Onboarding
	guard      *app.Guard
}

// wire builds the application services. Store reads, probes, and published
// events are traced; events are enqueued on River and worked by the server.
func wire(ctx context.Context, cfg config.Config, store *sqlite.Store) (*services, error) {
	client, err := riveradapter.Setup(ctx, store.DB(), cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("river: %w", err)
	}

	issuer, err := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL.Duration)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	traced := otel.NewTracingStore(store)
	prober := otel.NewTracingProber(app.NewProbes(traced))
	validator := fsmadapter.New()
	timeout := cfg.ProbeTimeout.Duration
	newMachine := func() *app.Machine {
		return app.NewMachine(prober, validator, timeout)
	}

	publisher := otel.NewTracingPublisher(riveradapter.NewPublisher(client))
	auth := app.NewAuth(traced, issuer)

	return &services{
		store:      traced,
		river:      client,
		newMachine: newMachine,
		auth:       auth,
		onboarding: app.NewOnboarding(traced, publisher, auth),
		guard:      app.NewGuard(newMachine, traced),
	}, nil
}

func telemetryConfig(cfg config.Config) otel.Config {
	return otel.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Telemetry.Environment,
		Exporter:       cfg.Telemetry.Exporter,
		Insecure:       cfg.Telemetry.Environment == "development",
	}
}

func shutdownTelemetry(providers *otel.Providers) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := providers.Shutdown(ctx); err != nil {
		slog.Error("otel shutdown", "error", err)
	}
}
