package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

// SuperAdminInput is submitted at the super-admin step.
type SuperAdminInput struct {
	Email    string
	Name     string
	Password string
}

// OrganisationInput is submitted at the organisation step.
type OrganisationInput struct {
	Name    string
	Slug    string
	Email   string
	Phone   string
	Address string
}

// AdminInput is submitted at the admin step.
type AdminInput struct {
	Email    string
	Name     string
	Password string
}

// Onboarding runs the completion action of each step. An action writes to the
// store, then fires exactly one event on the machine. It never probes. A
// failed action returns a domain.StepActionError and leaves the step as is.
// Actions on one machine run one at a time.
type Onboarding struct {
	store     domain.Store
	publisher domain.EventPublisher
	auth      *Auth
}

// NewOnboarding creates the step-action service.
func NewOnboarding(store domain.Store, publisher domain.EventPublisher, auth *Auth) *Onboarding {
	return &Onboarding{
		store:     store,
		publisher: publisher,
		auth:      auth,
	}
}

// CreateSuperAdmin creates the deployment's super-admin.
func (o *Onboarding) CreateSuperAdmin(ctx context.Context, m *Machine, in SuperAdminInput) (domain.SetupState, error) {
	const action = "create super-admin"
	defer m.hold()()
	state, err := expectStep(m, domain.StepSuperAdmin, domain.EventSuperAdminCreated)
	if err != nil {
		return state, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return state, actionFailed(domain.StepSuperAdmin, action, err)
	}

	id, err := generateID()
	if err != nil {
		return state, actionFailed(domain.StepSuperAdmin, action, err)
	}

	admin := domain.NewSuperAdmin(id, in.Email, strings.TrimSpace(in.Name), hash)
	if err := o.store.CreateSuperAdmin(ctx, admin); err != nil {
		return state, actionFailed(domain.StepSuperAdmin, action, err)
	}

	o.publish(ctx, domain.EventSuperAdminCreated, domain.Subject{UserID: admin.ID, Email: admin.Email})
	return m.SuperAdminCreated(ctx)
}

// SelectPlan records the plan for the organisation about to be created.
func (o *Onboarding) SelectPlan(ctx context.Context, m *Machine, plan string) (domain.SetupState, error) {
	defer m.hold()()
	state, err := expectStep(m, domain.StepPricing, domain.EventPlanSelected)
	if err != nil {
		return state, err
	}

	state, err = m.SelectPlan(ctx, plan)
	if err != nil {
		return state, actionFailed(domain.StepPricing, "select plan", err)
	}
	return state, nil
}

// CreateOrganisation creates the tenant on the selected plan.
func (o *Onboarding) CreateOrganisation(ctx context.Context, m *Machine, in OrganisationInput) (domain.SetupState, error) {
	const action = "create organisation"
	defer m.hold()()
	state, err := expectStep(m, domain.StepOrganisation, domain.EventOrganisationCreated)
	if err != nil {
		return state, err
	}

	id, err := generateID()
	if err != nil {
		return state, actionFailed(domain.StepOrganisation, action, err)
	}

	org := domain.NewOrganisation(id, strings.TrimSpace(in.Name), in.Slug, planOrDefault(state.SelectedPlan))
	org.Email = domain.NormalizeEmail(in.Email)
	org.Phone = strings.TrimSpace(in.Phone)
	org.Address = strings.TrimSpace(in.Address)

	if err := o.store.CreateOrganisation(ctx, org); err != nil {
		return state, actionFailed(domain.StepOrganisation, action, err)
	}

	o.publish(ctx, domain.EventOrganisationCreated, domain.Subject{
		OrganisationID: org.ID,
		Slug:           org.Slug,
		Plan:           org.Plan,
	})
	return m.OrganisationCreated(ctx, domain.OrganisationData{
		ID:   org.ID,
		Name: org.Name,
		Slug: org.Slug,
		Plan: org.Plan,
	})
}

// CreateAdmin creates the first admin of the organisation captured at the
// previous step.
func (o *Onboarding) CreateAdmin(ctx context.Context, m *Machine, in AdminInput) (domain.SetupState, error) {
	const action = "create admin"
	defer m.hold()()
	state, err := expectStep(m, domain.StepAdmin, domain.EventAdminCreated)
	if err != nil {
		return state, err
	}
	if state.OrganisationData == nil || state.OrganisationData.ID == "" {
		return state, actionFailed(domain.StepAdmin, action, domain.ErrOrganisationRequired)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return state, actionFailed(domain.StepAdmin, action, err)
	}

	id, err := generateID()
	if err != nil {
		return state, actionFailed(domain.StepAdmin, action, err)
	}

	user := domain.NewUser(id, state.OrganisationData.ID, in.Email, strings.TrimSpace(in.Name), domain.RoleAdmin, hash)
	if err := o.store.CreateUser(ctx, user); err != nil {
		return state, actionFailed(domain.StepAdmin, action, err)
	}

	o.publish(ctx, domain.EventAdminCreated, domain.Subject{
		OrganisationID: user.OrganisationID,
		UserID:         user.ID,
		Email:          user.Email,
	})
	return m.AdminCreated(ctx)
}

// SignIn authenticates and, when m is at the auth step, completes the
// workflow. m may be nil for a plain sign-in outside setup.
func (o *Onboarding) SignIn(ctx context.Context, m *Machine, email, password string) (domain.Principal, string, domain.SetupState, error) {
	var state domain.SetupState
	if m != nil {
		defer m.hold()()
		state = m.Snapshot()
	}

	principal, token, err := o.auth.SignIn(ctx, email, password)
	if err != nil {
		if m != nil && state.Step == domain.StepAuth {
			err = actionFailed(domain.StepAuth, "sign in", err)
		}
		return domain.Principal{}, "", state, err
	}

	o.publish(ctx, domain.EventAuthenticated, domain.Subject{
		OrganisationID: principal.OrganisationID,
		UserID:         principal.ID,
		Email:          principal.Email,
	})

	if m == nil || state.Step != domain.StepAuth {
		return principal, token, state, nil
	}

	state, err = m.Authenticated(domain.WithPrincipal(ctx, principal))
	return principal, token, state, err
}

// expectStep rejects an action submitted from the wrong step before any write happens.
func expectStep(m *Machine, want domain.Step, event domain.Event) (domain.SetupState, error) {
	state := m.Snapshot()
	if state.Step != want {
		return state, &domain.TransitionError{Event: event, Current: state.Step}
	}
	return state, nil
}

func actionFailed(step domain.Step, action string, err error) error {
	var stepErr *domain.StepActionError
	if errors.As(err, &stepErr) {
		return err
	}
	return &domain.StepActionError{Step: step, Action: action, Err: err}
}

// publish emits an onboarding event. The write it describes already
// happened, so a failed publish is logged and the workflow continues.
func (o *Onboarding) publish(ctx context.Context, event domain.Event, subject domain.Subject) {
	if err := o.publisher.Publish(ctx, event, subject); err != nil {
		slog.WarnContext(ctx, "publishing onboarding event failed",
			"event", event,
			"organisation_id", subject.OrganisationID,
			"error", err,
		)
	}
}
