package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/garagedesk/internal/app"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

// Deps are the application services the router exposes.
type Deps struct {
	Onboarding *app.Onboarding
	Auth       *app.Auth
	Guard      *app.Guard
	Sessions   *app.SetupSessions
	Store      domain.Store

	ServiceName     string
	Version         string
	CookieSecure    bool
	TokenTTL        time.Duration
	SetupSessionTTL time.Duration
}

type HealthOutput struct {
	Body struct {
		Status string `json:"status" example:"ok"`
	}
}

// NewRouter builds the HTTP handler: public setup and auth endpoints, plus
// workspace routes behind the access guard.
func NewRouter(d Deps) http.Handler {
	if d.ServiceName == "" {
		d.ServiceName = "garagedesk"
	}
	c := cookies{secure: d.CookieSecure}

	router := chi.NewMux()
	router.Use(otelchi.Middleware(d.ServiceName, otelchi.WithChiRoutes(router)))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(Authenticate(d.Auth))
	router.Use(setupSessions(d.Sessions, d.SetupSessionTTL, c))

	api := humachi.New(router, huma.DefaultConfig("GarageDesk", d.Version))

	huma.Register(api, huma.Operation{
		OperationID: "healthz",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Liveness check",
		Tags:        []string{"Health"},
	}, func(_ context.Context, _ *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})

	registerSetup(api, setupHandlers{onboarding: d.Onboarding, sessions: d.Sessions})
	registerAuth(api, authHandlers{
		onboarding: d.Onboarding,
		sessions:   d.Sessions,
		guard:      d.Guard,
		cookies:    c,
		tokenTTL:   d.TokenTTL,
	})

	router.Group(func(r chi.Router) {
		r.Use(RequireAccess(d.Guard, d.CookieSecure))
		registerWorkspace(humachi.New(r, protectedConfig(d.Version)), d.Store)
		r.Get("/dashboard", dashboard(d.Store))
	})

	router.Group(func(r chi.Router) {
		r.Use(RequireAccess(d.Guard, d.CookieSecure, domain.RoleAdmin, domain.RoleManager))
		registerStaff(humachi.New(r, protectedConfig(d.Version)), d.Store)
	})

	return router
}

// protectedConfig is the Huma config for route groups behind the guard. The
// public API already serves the docs.
func protectedConfig(version string) huma.Config {
	config := huma.DefaultConfig("GarageDesk", version)
	config.OpenAPIPath = ""
	config.DocsPath = ""
	config.SchemasPath = ""
	return config
}
