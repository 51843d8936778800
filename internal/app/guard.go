package app

import (
	"context"
	"errors"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

// Safe views the guard redirects browser navigations to.
const (
	RedirectSetup              = "/setup"
	RedirectLogin              = "/login"
	RedirectSelectOrganisation = "/organisations/select"
	RedirectDashboard          = "/dashboard"
)

// Guard decides whether protected content may render. It holds no state
// between calls: every Check builds and evaluates a fresh machine.
type Guard struct {
	newMachine    func() *Machine
	organisations domain.OrganisationRepository
}

// NewGuard creates a guard that evaluates machines from newMachine and
// checks organisation membership against organisations.
func NewGuard(newMachine func() *Machine, organisations domain.OrganisationRepository) *Guard {
	return &Guard{newMachine: newMachine, organisations: organisations}
}

// Check re-validates setup, organisation membership, and role for one
// request. principal is nil for anonymous requests; cached is the caller's
// last organisation selection, possibly zero.
func (g *Guard) Check(ctx context.Context, principal *domain.Principal, cached domain.OrgSelection, required ...domain.Role) domain.Decision {
	if principal != nil {
		ctx = domain.WithPrincipal(ctx, *principal)
	}

	m := g.newMachine()
	defer m.Close()

	state, err := m.Evaluate(ctx)
	if err != nil {
		return domain.Decision{Status: domain.GuardLoading, Step: state.Step, Redirect: RedirectSetup, Err: err}
	}
	if probeErr := m.LastError(); probeErr != nil {
		return domain.Decision{Status: domain.GuardLoading, Step: state.Step, Redirect: RedirectSetup, Err: probeErr}
	}

	switch state.Step {
	case domain.StepComplete:
	case domain.StepAuth:
		return domain.Decision{
			Status:   domain.GuardUnauthenticated,
			Step:     state.Step,
			Redirect: RedirectLogin,
			Err:      &domain.SetupIncompleteError{Step: state.Step},
		}
	default:
		return domain.Decision{
			Status:   domain.GuardSetupRequired,
			Step:     state.Step,
			Redirect: RedirectSetup,
			Err:      &domain.SetupIncompleteError{Step: state.Step},
		}
	}

	if principal == nil {
		return domain.Decision{Status: domain.GuardUnauthenticated, Step: domain.StepAuth, Redirect: RedirectLogin}
	}
	p := *principal

	decision := g.resolveOrganisation(ctx, p, cached)
	if decision.Status != domain.GuardAuthenticated || decision.Err != nil {
		return decision
	}

	if p.Role != domain.RoleSuperAdmin && !p.HasRole(required...) {
		decision.Redirect = RedirectDashboard
		decision.Err = &domain.InsufficientRoleError{Role: p.Role, Required: required}
	}
	return decision
}

func (g *Guard) resolveOrganisation(ctx context.Context, p domain.Principal, cached domain.OrgSelection) domain.Decision {
	decision := domain.Decision{Status: domain.GuardAuthenticated, Step: domain.StepComplete}

	fromCache := false
	organisationID := p.OrganisationID
	if cached.OrganisationID != "" {
		switch {
		case cached.PrincipalID != p.ID:
			decision.InvalidateOrgCache = true
		case p.Role == domain.RoleSuperAdmin:
			organisationID = cached.OrganisationID
			fromCache = true
		case cached.OrganisationID != p.OrganisationID:
			decision.InvalidateOrgCache = true
		}
	}

	orgRequired := func() domain.Decision {
		decision.Status = domain.GuardOrgRequired
		decision.Redirect = RedirectSelectOrganisation
		decision.Err = domain.ErrOrganisationRequired
		return decision
	}

	if organisationID == "" {
		return orgRequired()
	}

	org, err := g.organisations.GetOrganisation(ctx, organisationID)
	switch {
	case errors.Is(err, domain.ErrNotFound), err == nil && org.Status != domain.OrganisationActive:
		if fromCache {
			decision.InvalidateOrgCache = true
		}
		return orgRequired()
	case err != nil:
		decision.Status = domain.GuardLoading
		decision.Step = domain.StepChecking
		decision.Redirect = RedirectSetup
		decision.Err = &domain.ProbeTransportError{
			Probe:   domain.ProbeOrganisation,
			Timeout: errors.Is(err, context.DeadlineExceeded),
			Err:     err,
		}
		return decision
	}

	decision.OrganisationID = org.ID
	return decision
}

// SelectOrganisation validates a super-admin's organisation pick and returns
// the selection to cache. Tenant users may only select their own organisation.
func (g *Guard) SelectOrganisation(ctx context.Context, p domain.Principal, organisationID string) (domain.OrgSelection, error) {
	if p.Role != domain.RoleSuperAdmin && organisationID != p.OrganisationID {
		return domain.OrgSelection{}, &domain.InsufficientRoleError{Role: p.Role, Required: []domain.Role{domain.RoleSuperAdmin}}
	}

	org, err := g.organisations.GetOrganisation(ctx, organisationID)
	if err != nil {
		return domain.OrgSelection{}, err
	}
	if org.Status != domain.OrganisationActive {
		return domain.OrgSelection{}, domain.ErrNotFound
	}
	return domain.OrgSelection{PrincipalID: p.ID, OrganisationID: org.ID}, nil
}
