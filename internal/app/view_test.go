package app_test

import (
	"errors"
	"testing"

	"github.com/neomorfeo/garagedesk/internal/app"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

func TestRender_EveryStepHasAView(t *testing.T) {
	for _, step := range domain.Steps {
		v, err := app.Render(domain.SetupState{Step: step})
		if err != nil {
			t.Errorf("Render(%q): %v", step, err)
			continue
		}
		if v.Step != step {
			t.Errorf("Render(%q).Step = %q", step, v.Step)
		}

		shown := 0
		for _, set := range []bool{v.Loading, v.Proceed, v.Form != ""} {
			if set {
				shown++
			}
		}
		if shown != 1 {
			t.Errorf("Render(%q) shows %d of loading/proceed/form, want exactly one", step, shown)
		}
	}
}

func TestRender_UnknownStep(t *testing.T) {
	_, err := app.Render(domain.SetupState{Step: domain.Step("billing")})

	var unhandled *domain.UnhandledStepError
	if !errors.As(err, &unhandled) {
		t.Fatalf("err = %v, want UnhandledStepError", err)
	}
	if unhandled.Step != "billing" {
		t.Errorf("step = %q, want billing", unhandled.Step)
	}
}

func TestRender_Forms(t *testing.T) {
	tests := []struct {
		step   domain.Step
		form   string
		submit domain.Event
	}{
		{domain.StepSuperAdmin, "super-admin", domain.EventSuperAdminCreated},
		{domain.StepPricing, "plan", domain.EventPlanSelected},
		{domain.StepOrganisation, "organisation", domain.EventOrganisationCreated},
		{domain.StepAdmin, "admin", domain.EventAdminCreated},
		{domain.StepAuth, "sign-in", domain.EventAuthenticated},
	}

	for _, tt := range tests {
		v, err := app.Render(domain.SetupState{Step: tt.step})
		if err != nil {
			t.Fatalf("Render(%q): %v", tt.step, err)
		}
		if v.Form != tt.form {
			t.Errorf("Render(%q).Form = %q, want %q", tt.step, v.Form, tt.form)
		}
		if v.Submit != tt.submit {
			t.Errorf("Render(%q).Submit = %q, want %q", tt.step, v.Submit, tt.submit)
		}
		if len(v.Fields) == 0 {
			t.Errorf("Render(%q) has no fields", tt.step)
		}
	}
}

func TestRender_PlanChoicesAndDetails(t *testing.T) {
	v, _ := app.Render(domain.SetupState{Step: domain.StepPricing})
	if got := v.Fields[0].Options; len(got) != len(domain.Plans) {
		t.Errorf("plan options = %v, want %d", got, len(domain.Plans))
	}

	v, _ = app.Render(domain.SetupState{Step: domain.StepOrganisation})
	if v.Details["plan"] != string(domain.PlanFree) {
		t.Errorf("default plan = %q, want %q", v.Details["plan"], domain.PlanFree)
	}

	v, _ = app.Render(domain.SetupState{
		Step:             domain.StepAdmin,
		OrganisationData: &domain.OrganisationData{ID: "org_1", Name: "Acme"},
	})
	if v.Details["organisation_id"] != "org_1" {
		t.Errorf("details = %v, want organisation_id org_1", v.Details)
	}
}

func TestRender_ProbeErrorOffersRetry(t *testing.T) {
	v, err := app.Render(domain.SetupState{Step: domain.StepSuperAdmin, Error: "probe super_admin failed"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if v.Error == "" || !v.Retry {
		t.Errorf("view = %+v, want error with retry", v)
	}
}

func TestRenderWithActionError(t *testing.T) {
	actionErr := &domain.StepActionError{
		Step:   domain.StepOrganisation,
		Action: "create organisation",
		Err:    &domain.SlugConflictError{Slug: "acme"},
	}

	v, err := app.RenderWithActionError(domain.SetupState{Step: domain.StepOrganisation}, actionErr)
	if err != nil {
		t.Fatalf("RenderWithActionError: %v", err)
	}
	if v.Step != domain.StepOrganisation {
		t.Errorf("step = %q, want %q", v.Step, domain.StepOrganisation)
	}
	if v.Error != actionErr.Error() {
		t.Errorf("error = %q, want %q", v.Error, actionErr.Error())
	}
	if v.Retry {
		t.Error("an action error is retried by resubmitting, not re-probing")
	}
}
