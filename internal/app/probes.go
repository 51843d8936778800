package app

import (
	"context"
	"errors"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

// Compile-time check: Probes implements domain.ExistenceProber.
var _ domain.ExistenceProber = (*Probes)(nil)

// Probes answers the four existence questions the setup machine asks.
// Absence is NotFound; only read failures become ProbeFailed.
type Probes struct {
	store domain.Store
}

// NewProbes creates probes backed by the given store.
func NewProbes(store domain.Store) *Probes {
	return &Probes{store: store}
}

// SuperAdminExists reports whether an active super-admin exists.
func (p *Probes) SuperAdminExists(ctx context.Context) domain.ProbeResult {
	n, err := p.store.CountActiveSuperAdmins(ctx)
	return domain.ProbeOf(domain.ProbeSuperAdmin, n, err)
}

// OrganisationExists reports whether an active organisation exists.
func (p *Probes) OrganisationExists(ctx context.Context) domain.ProbeResult {
	n, err := p.store.CountActiveOrganisations(ctx)
	return domain.ProbeOf(domain.ProbeOrganisation, n, err)
}

// AdminExists reports whether organisationID has an admin. An empty ID
// looks across every organisation.
func (p *Probes) AdminExists(ctx context.Context, organisationID string) domain.ProbeResult {
	n, err := p.store.CountAdmins(ctx, organisationID)
	return domain.ProbeOf(domain.ProbeAdmin, n, err)
}

// SessionPresent checks the principal carried by ctx against the store, so a
// token for a deleted or deactivated account does not count as a session.
func (p *Probes) SessionPresent(ctx context.Context) domain.ProbeResult {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.NotFound{}
	}

	var active bool
	var err error
	if principal.Role == domain.RoleSuperAdmin {
		var admin domain.SuperAdmin
		admin, err = p.store.GetSuperAdmin(ctx, principal.ID)
		active = admin.Active
	} else {
		var user domain.User
		user, err = p.store.GetUser(ctx, principal.ID)
		active = user.Active
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.NotFound{}
	case err != nil:
		return domain.ProbeOf(domain.ProbeSession, 0, err)
	case !active:
		return domain.NotFound{}
	}
	return domain.Exists{}
}
