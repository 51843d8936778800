package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/garagedesk/internal/app"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

// FieldResponse is one input of a step form.
type FieldResponse struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type" enum:"text,email,password,choice"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// OrganisationDataResponse is the organisation captured by the organisation step.
type OrganisationDataResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Plan string `json:"plan"`
}

// SetupStateResponse is the probe-derived part of the workflow state.
type SetupStateResponse struct {
	HasSuperAdmin    bool                      `json:"has_super_admin"`
	HasOrganisations bool                      `json:"has_organisations"`
	HasAdmin         bool                      `json:"has_admin"`
	IsAuthenticated  bool                      `json:"is_authenticated"`
	SelectedPlan     string                    `json:"selected_plan,omitempty"`
	Organisation     *OrganisationDataResponse `json:"organisation,omitempty"`
}

// StepResponse is the API representation of the current setup step.
type StepResponse struct {
	Step        string             `json:"step" doc:"Current setup step"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Loading     bool               `json:"loading" doc:"Probes are still settling"`
	Proceed     bool               `json:"proceed" doc:"Setup is complete and the app may load"`
	Form        string             `json:"form,omitempty" doc:"Form to show for this step"`
	Fields      []FieldResponse    `json:"fields,omitempty"`
	Submit      string             `json:"submit,omitempty" doc:"Event fired once the form's action succeeds"`
	Details     map[string]string  `json:"details,omitempty"`
	Error       string             `json:"error,omitempty"`
	Retry       bool               `json:"retry" doc:"The error came from a probe and a re-check may clear it"`
	State       SetupStateResponse `json:"state"`
}

func toStepResponse(v app.StepView, s domain.SetupState) StepResponse {
	resp := StepResponse{
		Step:        string(v.Step),
		Title:       v.Title,
		Description: v.Description,
		Loading:     v.Loading,
		Proceed:     v.Proceed,
		Form:        v.Form,
		Submit:      string(v.Submit),
		Details:     v.Details,
		Error:       v.Error,
		Retry:       v.Retry,
		State: SetupStateResponse{
			HasSuperAdmin:    s.HasSuperAdmin,
			HasOrganisations: s.HasOrganisations,
			HasAdmin:         s.HasAdmin,
			IsAuthenticated:  s.IsAuthenticated,
			SelectedPlan:     s.SelectedPlan,
		},
	}

	for _, f := range v.Fields {
		resp.Fields = append(resp.Fields, FieldResponse{
			Name:     f.Name,
			Label:    f.Label,
			Type:     f.Type,
			Required: f.Required,
			Options:  f.Options,
		})
	}

	if d := s.OrganisationData; d != nil {
		resp.State.Organisation = &OrganisationDataResponse{ID: d.ID, Name: d.Name, Slug: d.Slug, Plan: d.Plan}
	}

	return resp
}

// --- Get Setup ---

type GetSetupInput struct {
	Refresh bool `query:"refresh" required:"false" doc:"Re-run the existence probes"`
}

type SetupOutput struct {
	Body StepResponse
}

// --- Step actions ---

type AccountBody struct {
	Email    string `json:"email" format:"email" maxLength:"255" doc:"Sign-in email"`
	Name     string `json:"name" minLength:"1" maxLength:"255" doc:"Full name"`
	Password string `json:"password" minLength:"1" maxLength:"72" doc:"Password, at least 8 characters"`
}

type CreateSuperAdminInput struct {
	Body AccountBody
}

type SelectPlanInput struct {
	Body struct {
		Plan string `json:"plan" doc:"Subscription plan (free, monthly, yearly)"`
	}
}

type CreateOrganisationInput struct {
	Body struct {
		Name    string `json:"name" minLength:"1" maxLength:"255" doc:"Garage name"`
		Slug    string `json:"slug" minLength:"1" maxLength:"100" pattern:"^[a-z0-9]+(?:-[a-z0-9]+)*$" doc:"URL-friendly identifier (lowercase, hyphens)"`
		Email   string `json:"email,omitempty" required:"false" doc:"Contact email"`
		Phone   string `json:"phone,omitempty" required:"false" doc:"Contact phone"`
		Address string `json:"address,omitempty" required:"false" doc:"Postal address"`
	}
}

type CreateAdminInput struct {
	Body AccountBody
}

type setupHandlers struct {
	onboarding *app.Onboarding
	sessions   *app.SetupSessions
}

// registerSetup adds the setup workflow routes to the Huma API.
func registerSetup(api huma.API, h setupHandlers) {
	huma.Register(api, huma.Operation{
		OperationID: "get-setup",
		Method:      http.MethodGet,
		Path:        "/api/v1/setup",
		Summary:     "Get the current setup step",
		Tags:        []string{"Setup"},
	}, func(ctx context.Context, input *GetSetupInput) (*SetupOutput, error) {
		sess, err := session(ctx)
		if err != nil {
			return nil, err
		}

		state := sess.machine.Snapshot()
		if input.Refresh || state.Step == domain.StepChecking || state.Error != "" {
			if state, err = sess.machine.Evaluate(ctx); err != nil {
				return nil, toHumaError(ctx, err)
			}
		}
		return h.respond(ctx, sess, state)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-super-admin",
		Method:        http.MethodPost,
		Path:          "/api/v1/setup/super-admin",
		Summary:       "Create the deployment's super-admin",
		Tags:          []string{"Setup"},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, input *CreateSuperAdminInput) (*SetupOutput, error) {
		return h.act(ctx, func(m *app.Machine) (domain.SetupState, error) {
			return h.onboarding.CreateSuperAdmin(ctx, m, app.SuperAdminInput{
				Email:    input.Body.Email,
				Name:     input.Body.Name,
				Password: input.Body.Password,
			})
		})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "select-plan",
		Method:        http.MethodPost,
		Path:          "/api/v1/setup/plan",
		Summary:       "Select the organisation's plan",
		Tags:          []string{"Setup"},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, input *SelectPlanInput) (*SetupOutput, error) {
		return h.act(ctx, func(m *app.Machine) (domain.SetupState, error) {
			return h.onboarding.SelectPlan(ctx, m, input.Body.Plan)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-organisation",
		Method:        http.MethodPost,
		Path:          "/api/v1/setup/organisation",
		Summary:       "Create the first garage",
		Tags:          []string{"Setup"},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, input *CreateOrganisationInput) (*SetupOutput, error) {
		return h.act(ctx, func(m *app.Machine) (domain.SetupState, error) {
			return h.onboarding.CreateOrganisation(ctx, m, app.OrganisationInput{
				Name:    input.Body.Name,
				Slug:    input.Body.Slug,
				Email:   input.Body.Email,
				Phone:   input.Body.Phone,
				Address: input.Body.Address,
			})
		})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-admin",
		Method:        http.MethodPost,
		Path:          "/api/v1/setup/admin",
		Summary:       "Create the garage administrator",
		Tags:          []string{"Setup"},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, input *CreateAdminInput) (*SetupOutput, error) {
		return h.act(ctx, func(m *app.Machine) (domain.SetupState, error) {
			return h.onboarding.CreateAdmin(ctx, m, app.AdminInput{
				Email:    input.Body.Email,
				Name:     input.Body.Name,
				Password: input.Body.Password,
			})
		})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "reset-setup",
		Method:        http.MethodPost,
		Path:          "/api/v1/setup/reset",
		Summary:       "Restart setup from the existence probes",
		Tags:          []string{"Setup"},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, _ *struct{}) (*SetupOutput, error) {
		sess, err := session(ctx)
		if err != nil {
			return nil, err
		}

		state, err := sess.machine.Reset(ctx)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return h.respond(ctx, sess, state)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "discard-setup",
		Method:        http.MethodDelete,
		Path:          "/api/v1/setup",
		Summary:       "Discard the setup session",
		Tags:          []string{"Setup"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		sess, err := session(ctx)
		if err != nil {
			return nil, err
		}
		h.sessions.Discard(sess.id)
		return nil, nil
	})
}

func session(ctx context.Context) (setupSession, error) {
	sess, ok := setupSessionFrom(ctx)
	if !ok {
		return setupSession{}, huma.Error404NotFound(domain.ErrSetupSessionNotFound.Error())
	}
	return sess, nil
}

// act runs a step action. A session that has not probed yet is evaluated
// first so the action sees a settled step.
func (h setupHandlers) act(ctx context.Context, action func(*app.Machine) (domain.SetupState, error)) (*SetupOutput, error) {
	sess, err := session(ctx)
	if err != nil {
		return nil, err
	}

	if sess.machine.Snapshot().Step == domain.StepChecking {
		if _, err := sess.machine.Evaluate(ctx); err != nil {
			return nil, toHumaError(ctx, err)
		}
	}

	state, err := action(sess.machine)
	if err != nil {
		return nil, stepError(ctx, sess.machine, err)
	}
	return h.respond(ctx, sess, state)
}

func (h setupHandlers) respond(ctx context.Context, sess setupSession, state domain.SetupState) (*SetupOutput, error) {
	view, err := app.Render(state)
	if err != nil {
		return nil, toHumaError(ctx, err)
	}

	if state.Step == domain.StepComplete {
		h.sessions.Discard(sess.id)
	}

	return &SetupOutput{Body: toStepResponse(view, state)}, nil
}
