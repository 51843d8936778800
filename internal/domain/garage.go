package domain

import (
	"strings"
	"time"
)

// Role is a principal's authorization level.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RoleMechanic     Role = "mechanic"
	RoleReceptionist Role = "receptionist"
)

// Plan is a subscription plan offered at the pricing step.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

// Plans lists the plans in the order the picker shows them.
var Plans = []Plan{PlanFree, PlanMonthly, PlanYearly}

// ValidPlan reports whether id names a known plan.
func ValidPlan(id string) bool {
	for _, p := range Plans {
		if string(p) == id {
			return true
		}
	}
	return false
}

// OrganisationStatus is the lifecycle state of a tenant.
type OrganisationStatus string

const (
	OrganisationActive    OrganisationStatus = "active"
	OrganisationSuspended OrganisationStatus = "suspended"
)

// SuperAdmin is the global operator. One per deployment is required before
// any organisation can be created.
type SuperAdmin struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// Organisation is a tenant: an isolated garage account.
type Organisation struct {
	ID        string
	Name      string
	Slug      string
	Plan      string
	Email     string
	Phone     string
	Address   string
	Status    OrganisationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is a member of one organisation.
type User struct {
	ID             string
	OrganisationID string
	Email          string
	Name           string
	Role           Role
	PasswordHash   string
	Active         bool
	CreatedAt      time.Time
}

// NewSuperAdmin creates an active super-admin record.
func NewSuperAdmin(id, email, name, passwordHash string) SuperAdmin {
	return SuperAdmin{
		ID:           id,
		Email:        NormalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
}

// NewOrganisation creates an organisation in the active state.
func NewOrganisation(id, name, slug, plan string) Organisation {
	now := time.Now().UTC()
	return Organisation{
		ID:        id,
		Name:      name,
		Slug:      slug,
		Plan:      plan,
		Status:    OrganisationActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewUser creates an active user scoped to an organisation.
func NewUser(id, organisationID, email, name string, role Role, passwordHash string) User {
	return User{
		ID:             id,
		OrganisationID: organisationID,
		Email:          NormalizeEmail(email),
		Name:           name,
		Role:           role,
		PasswordHash:   passwordHash,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
