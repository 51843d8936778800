package domain

// Step is one discrete stage of the tenant-initialization workflow.
type Step string

const (
	StepChecking     Step = "checking"
	StepSuperAdmin   Step = "super-admin"
	StepPricing      Step = "pricing"
	StepOrganisation Step = "organisation"
	StepAdmin        Step = "admin"
	StepAuth         Step = "auth"
	StepComplete     Step = "complete"
)

// Steps lists every step in workflow order.
var Steps = []Step{
	StepChecking,
	StepSuperAdmin,
	StepPricing,
	StepOrganisation,
	StepAdmin,
	StepAuth,
	StepComplete,
}

// Valid reports whether s is one of the enumerated steps.
func (s Step) Valid() bool {
	for _, step := range Steps {
		if s == step {
			return true
		}
	}
	return false
}

// Event represents an action that triggers a step transition.
type Event string

const (
	EventSuperAdminCreated   Event = "super_admin_created"
	EventPlanSelected        Event = "plan_selected"
	EventOrganisationCreated Event = "organisation_created"
	EventAdminCreated        Event = "admin_created"
	EventAuthenticated       Event = "authenticated"
	EventReset               Event = "reset"
)

// Transition defines a valid step change: an event moves the workflow from Src to Dst.
type Transition struct {
	Event Event
	Src   Step
	Dst   Step
}

// Transitions defines all explicit step changes. Everything else is derived
// from probe results by NextStep.
var Transitions = buildTransitions()

func buildTransitions() []Transition {
	out := []Transition{
		{Event: EventSuperAdminCreated, Src: StepSuperAdmin, Dst: StepChecking},
		{Event: EventPlanSelected, Src: StepPricing, Dst: StepOrganisation},
		{Event: EventOrganisationCreated, Src: StepOrganisation, Dst: StepAdmin},
		{Event: EventAdminCreated, Src: StepAdmin, Dst: StepAuth},
		{Event: EventAuthenticated, Src: StepAuth, Dst: StepComplete},
	}
	for _, s := range Steps {
		out = append(out, Transition{Event: EventReset, Src: s, Dst: StepChecking})
	}
	return out
}

// NextStep maps probe results to a step. Checks run global → tenant → user,
// first match wins.
func NextStep(hasSuperAdmin, hasOrganisations, isAuthenticated bool) Step {
	switch {
	case !hasSuperAdmin:
		return StepSuperAdmin
	case !hasOrganisations:
		return StepPricing
	case !isAuthenticated:
		return StepAuth
	default:
		return StepComplete
	}
}

// OrganisationData is the partial organisation record captured when the
// organisation step completes and handed to the admin step.
type OrganisationData struct {
	ID   string
	Name string
	Slug string
	Plan string
}

// SetupState is the workflow state owned by a single setup machine.
type SetupState struct {
	Step      Step
	IsLoading bool
	Error     string

	HasSuperAdmin    bool
	HasOrganisations bool
	HasAdmin         bool
	IsAuthenticated  bool

	SelectedPlan     string
	OrganisationData *OrganisationData
}

// NewSetupState returns the state a freshly mounted machine starts from.
func NewSetupState() SetupState {
	return SetupState{Step: StepChecking}
}

// Clone returns a deep copy safe to hand out of the owning machine.
func (s SetupState) Clone() SetupState {
	if s.OrganisationData != nil {
		data := *s.OrganisationData
		s.OrganisationData = &data
	}
	return s
}

// Resolve derives the next step from settled probes. Steps reached through
// plan_selected or organisation_created are held while their own
// precondition is still unmet; everything else follows NextStep.
func Resolve(current Step, hasSuperAdmin, hasOrganisations, hasAdmin, isAuthenticated bool) Step {
	derived := NextStep(hasSuperAdmin, hasOrganisations, isAuthenticated)

	switch {
	case current == StepOrganisation && derived == StepPricing:
		return StepOrganisation
	case current == StepAdmin && !hasAdmin && (derived == StepAuth || derived == StepComplete):
		return StepAdmin
	}
	return derived
}
