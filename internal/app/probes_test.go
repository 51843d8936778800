package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/neomorfeo/garagedesk/internal/app"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

func TestProbes_EmptyStoreIsNotFound(t *testing.T) {
	p := app.NewProbes(newMemStore())
	ctx := context.Background()

	for name, r := range map[string]domain.ProbeResult{
		"super-admin":  p.SuperAdminExists(ctx),
		"organisation": p.OrganisationExists(ctx),
		"admin":        p.AdminExists(ctx, ""),
		"session":      p.SessionPresent(ctx),
	} {
		if _, ok := r.(domain.NotFound); !ok {
			t.Errorf("%s = %#v, want NotFound", name, r)
		}
	}
}

func TestProbes_SeededStoreExists(t *testing.T) {
	f := newFixture()
	org, user := f.seedDeployment()
	p := app.NewProbes(f.store)
	ctx := domain.WithPrincipal(context.Background(), *principalOf(user))

	for name, r := range map[string]domain.ProbeResult{
		"super-admin":  p.SuperAdminExists(ctx),
		"organisation": p.OrganisationExists(ctx),
		"admin":        p.AdminExists(ctx, org.ID),
		"session":      p.SessionPresent(ctx),
	} {
		if _, ok := r.(domain.Exists); !ok {
			t.Errorf("%s = %#v, want Exists", name, r)
		}
	}

	if _, ok := p.AdminExists(ctx, "org-other").(domain.NotFound); !ok {
		t.Error("admin probe must be scoped to the organisation")
	}
}

func TestProbes_SessionForUnknownPrincipal(t *testing.T) {
	f := newFixture()
	f.seedDeployment()
	p := app.NewProbes(f.store)

	for _, principal := range []domain.Principal{
		{ID: "u-deleted", Role: domain.RoleAdmin},
		{ID: "sa-deleted", Role: domain.RoleSuperAdmin},
	} {
		ctx := domain.WithPrincipal(context.Background(), principal)
		if _, ok := p.SessionPresent(ctx).(domain.NotFound); !ok {
			t.Errorf("%s: want NotFound", principal.ID)
		}
	}
}

func TestProbes_ReadFailureIsProbeFailed(t *testing.T) {
	f := newFixture()
	_, user := f.seedDeployment()
	f.store.setFailReads(true)
	p := app.NewProbes(f.store)
	ctx := domain.WithPrincipal(context.Background(), *principalOf(user))

	for name, r := range map[string]domain.ProbeResult{
		domain.ProbeSuperAdmin:   p.SuperAdminExists(ctx),
		domain.ProbeOrganisation: p.OrganisationExists(ctx),
		domain.ProbeAdmin:        p.AdminExists(ctx, ""),
		domain.ProbeSession:      p.SessionPresent(ctx),
	} {
		pf, ok := r.(domain.ProbeFailed)
		if !ok {
			t.Errorf("%s = %#v, want ProbeFailed", name, r)
			continue
		}
		var probeErr *domain.ProbeTransportError
		if !errors.As(pf.Err, &probeErr) || probeErr.Probe != name {
			t.Errorf("%s: err = %v, want ProbeTransportError for %s", name, pf.Err, name)
		}
		if !errors.Is(pf.Err, errBackendDown) {
			t.Errorf("%s: cause lost: %v", name, pf.Err)
		}
	}
}
