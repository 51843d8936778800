package domain

import (
	"context"
	"slices"
	"strings"
)

// Principal is the authenticated caller as reported by the auth collaborator.
type Principal struct {
	ID             string
	Email          string
	Name           string
	Role           Role
	OrganisationID string
}

// HasRole reports whether the principal's role is in the allow-list. An empty
// allow-list admits every role.
func (p Principal) HasRole(allowed ...Role) bool {
	if len(allowed) == 0 {
		return true
	}
	return slices.Contains(allowed, p.Role)
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

type organisationKey struct{}

// WithOrganisation returns a context scoped to an organisation.
func WithOrganisation(ctx context.Context, organisationID string) context.Context {
	return context.WithValue(ctx, organisationKey{}, organisationID)
}

// OrganisationFromContext returns the organisation stored by WithOrganisation.
func OrganisationFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(organisationKey{}).(string)
	return id, ok && id != ""
}

// OrgSelection is the cached "last selected organisation" of a principal.
// It is only meaningful for the principal that made it.
type OrgSelection struct {
	PrincipalID    string
	OrganisationID string
}

// String encodes the selection as "principalID:organisationID".
func (s OrgSelection) String() string {
	if s.PrincipalID == "" || s.OrganisationID == "" {
		return ""
	}
	return s.PrincipalID + ":" + s.OrganisationID
}

// ParseOrgSelection decodes String's output. Malformed input yields the zero value.
func ParseOrgSelection(raw string) OrgSelection {
	principalID, organisationID, ok := strings.Cut(raw, ":")
	if !ok || principalID == "" || organisationID == "" {
		return OrgSelection{}
	}
	return OrgSelection{PrincipalID: principalID, OrganisationID: organisationID}
}

// GuardStatus is the guard-level outcome for one request.
type GuardStatus string

const (
	GuardLoading         GuardStatus = "loading"
	GuardUnauthenticated GuardStatus = "unauthenticated"
	GuardSetupRequired   GuardStatus = "setup_required"
	GuardOrgRequired     GuardStatus = "org_required"
	GuardAuthenticated   GuardStatus = "authenticated"
)

// Decision is what the access guard concluded for one request.
type Decision struct {
	Status GuardStatus
	Step   Step

	// OrganisationID is the tenant the request is scoped to once authenticated.
	OrganisationID string

	// InvalidateOrgCache asks the transport to drop the cached organisation selection.
	InvalidateOrgCache bool

	// Redirect is the safe view for a browser navigation, empty when children may render.
	Redirect string

	// Err carries ProbeTransportError, SetupIncompleteError, or InsufficientRoleError.
	Err error
}

// Allowed reports whether protected content may render.
func (d Decision) Allowed() bool {
	return d.Status == GuardAuthenticated && d.Err == nil
}
