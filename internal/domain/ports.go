package domain

import "context"

// SuperAdminRepository defines persistence for the global operator role.
type SuperAdminRepository interface {
	CreateSuperAdmin(ctx context.Context, admin SuperAdmin) error
	GetSuperAdmin(ctx context.Context, id string) (SuperAdmin, error)
	GetSuperAdminByEmail(ctx context.Context, email string) (SuperAdmin, error)
	CountActiveSuperAdmins(ctx context.Context) (int, error)
}

// OrganisationRepository defines persistence for tenants.
type OrganisationRepository interface {
	CreateOrganisation(ctx context.Context, org Organisation) error
	GetOrganisation(ctx context.Context, id string) (Organisation, error)
	CountActiveOrganisations(ctx context.Context) (int, error)
}

// UserRepository defines persistence for organisation members.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, organisationID string) ([]User, error)
	// CountAdmins counts active admin users. An empty organisationID counts across all tenants.
	CountAdmins(ctx context.Context, organisationID string) (int, error)
}

// Store is the backend collaborator as seen by the setup workflow.
type Store interface {
	SuperAdminRepository
	OrganisationRepository
	UserRepository
}

// ExistenceProber answers "does at least one row of kind X exist".
type ExistenceProber interface {
	SuperAdminExists(ctx context.Context) ProbeResult
	OrganisationExists(ctx context.Context) ProbeResult
	AdminExists(ctx context.Context, organisationID string) ProbeResult
	SessionPresent(ctx context.Context) ProbeResult
}

// TransitionValidator checks an explicit event against the current step and
// returns the destination step.
type TransitionValidator interface {
	Apply(ctx context.Context, current Step, event Event) (Step, error)
}

// Subject identifies what an onboarding event is about.
type Subject struct {
	OrganisationID string
	UserID         string
	Email          string
	Slug           string
	Plan           string
}

// EventPublisher defines the contract for emitting onboarding events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, subject Subject) error
}

// TokenIssuer mints and verifies bearer tokens for principals.
type TokenIssuer interface {
	Issue(p Principal) (string, error)
	Verify(token string) (Principal, error)
}
