package app

import (
	"github.com/neomorfeo/garagedesk/internal/domain"
)

// Field describes one input of a step form.
type Field struct {
	Name     string
	Label    string
	Type     string // "text", "email", "password", "choice"
	Required bool
	Options  []string
}

// StepView is what the current step shows. Exactly one of Loading, Proceed,
// or a form (Form != "") is set.
type StepView struct {
	Step        domain.Step
	Title       string
	Description string

	Loading bool
	Proceed bool

	Form   string
	Fields []Field
	// Submit is the event the form fires once its action succeeds.
	Submit domain.Event

	Details map[string]string

	Error string
	Retry bool
}

// Render maps a state to its view. Every enumerated step has a view; an
// unknown step is an UnhandledStepError, never an empty view.
func Render(state domain.SetupState) (StepView, error) {
	var v StepView

	switch state.Step {
	case domain.StepChecking:
		v = StepView{
			Title:   "Checking setup",
			Loading: true,
		}
	case domain.StepSuperAdmin:
		v = StepView{
			Title:       "Create the super-admin",
			Description: "The super-admin operates this deployment and is required before any garage can be created.",
			Form:        "super-admin",
			Fields:      accountFields(),
			Submit:      domain.EventSuperAdminCreated,
		}
	case domain.StepPricing:
		options := make([]string, len(domain.Plans))
		for i, p := range domain.Plans {
			options[i] = string(p)
		}
		v = StepView{
			Title:  "Choose a plan",
			Form:   "plan",
			Fields: []Field{{Name: "plan", Label: "Plan", Type: "choice", Required: true, Options: options}},
			Submit: domain.EventPlanSelected,
		}
	case domain.StepOrganisation:
		v = StepView{
			Title: "Create your garage",
			Form:  "organisation",
			Fields: []Field{
				{Name: "name", Label: "Garage name", Type: "text", Required: true},
				{Name: "slug", Label: "Short name", Type: "text", Required: true},
				{Name: "email", Label: "Contact email", Type: "email"},
				{Name: "phone", Label: "Phone", Type: "text"},
				{Name: "address", Label: "Address", Type: "text"},
			},
			Submit:  domain.EventOrganisationCreated,
			Details: map[string]string{"plan": planOrDefault(state.SelectedPlan)},
		}
	case domain.StepAdmin:
		v = StepView{
			Title:  "Create the garage administrator",
			Form:   "admin",
			Fields: accountFields(),
			Submit: domain.EventAdminCreated,
		}
		if d := state.OrganisationData; d != nil {
			v.Details = map[string]string{
				"organisation_id":   d.ID,
				"organisation_name": d.Name,
			}
		}
	case domain.StepAuth:
		v = StepView{
			Title: "Sign in",
			Form:  "sign-in",
			Fields: []Field{
				{Name: "email", Label: "Email", Type: "email", Required: true},
				{Name: "password", Label: "Password", Type: "password", Required: true},
			},
			Submit: domain.EventAuthenticated,
		}
	case domain.StepComplete:
		v = StepView{
			Title:   "Setup complete",
			Proceed: true,
		}
	default:
		return StepView{}, &domain.UnhandledStepError{Step: state.Step}
	}

	v.Step = state.Step
	if state.IsLoading {
		v.Loading = true
	}
	if state.Error != "" {
		v.Error = state.Error
		v.Retry = true
	}
	return v, nil
}

// RenderWithActionError renders the current step with a failed action shown
// inline. The step itself is unchanged.
func RenderWithActionError(state domain.SetupState, actionErr error) (StepView, error) {
	v, err := Render(state)
	if err != nil {
		return StepView{}, err
	}
	if actionErr != nil {
		v.Error = actionErr.Error()
		v.Retry = false
	}
	return v, nil
}

func accountFields() []Field {
	return []Field{
		{Name: "email", Label: "Email", Type: "email", Required: true},
		{Name: "name", Label: "Full name", Type: "text", Required: true},
		{Name: "password", Label: "Password", Type: "password", Required: true},
	}
}

func planOrDefault(plan string) string {
	if plan == "" {
		return string(domain.PlanFree)
	}
	return plan
}
