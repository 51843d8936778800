package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/garagedesk/internal/app"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

// PrincipalResponse is the API representation of the signed-in caller.
type PrincipalResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	OrganisationID string `json:"organisation_id,omitempty" doc:"Empty for the super-admin"`
}

func toPrincipalResponse(p domain.Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:             p.ID,
		Email:          p.Email,
		Name:           p.Name,
		Role:           string(p.Role),
		OrganisationID: p.OrganisationID,
	}
}

// --- Sign In ---

type SignInInput struct {
	Body struct {
		Email    string `json:"email" minLength:"1" maxLength:"255" doc:"Sign-in email"`
		Password string `json:"password" minLength:"1" maxLength:"72" doc:"Password"`
	}
}

type SignInOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Token     string            `json:"token" doc:"Bearer token"`
		Principal PrincipalResponse `json:"principal"`
		Setup     *StepResponse     `json:"setup,omitempty" doc:"Setup step after sign-in, when signing in from the setup workflow"`
	}
}

// --- Sign Out ---

type SignOutOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

// --- Select Organisation ---

type SelectOrganisationInput struct {
	Body struct {
		OrganisationID string `json:"organisation_id" minLength:"1" doc:"Organisation to work in"`
	}
}

type SelectOrganisationOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		OrganisationID string `json:"organisation_id"`
	}
}

type authHandlers struct {
	onboarding *app.Onboarding
	sessions   *app.SetupSessions
	guard      *app.Guard
	cookies    cookies
	tokenTTL   time.Duration
}

// registerAuth adds sign-in and organisation selection routes to the Huma API.
func registerAuth(api huma.API, h authHandlers) {
	huma.Register(api, huma.Operation{
		OperationID: "sign-in",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/sign-in",
		Summary:     "Sign in with email and password",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *SignInInput) (*SignInOutput, error) {
		sess, inSetup := setupSessionFrom(ctx)

		var m *app.Machine
		if inSetup {
			m = sess.machine
		}

		principal, token, state, err := h.onboarding.SignIn(ctx, m, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, stepError(ctx, m, err)
		}

		out := &SignInOutput{SetCookie: h.cookies.make(TokenCookie, token, h.tokenTTL)}
		out.Body.Token = token
		out.Body.Principal = toPrincipalResponse(principal)

		if inSetup {
			view, err := app.Render(state)
			if err != nil {
				return nil, toHumaError(ctx, err)
			}
			resp := toStepResponse(view, state)
			out.Body.Setup = &resp

			if state.Step == domain.StepComplete {
				h.sessions.Discard(sess.id)
			}
		}

		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "sign-out",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/sign-out",
		Summary:       "Clear the session cookie",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusNoContent,
	}, func(_ context.Context, _ *struct{}) (*SignOutOutput, error) {
		return &SignOutOutput{SetCookie: h.cookies.clear(TokenCookie)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "select-organisation",
		Method:      http.MethodPost,
		Path:        "/api/v1/session/organisation",
		Summary:     "Select the organisation to work in",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *SelectOrganisationInput) (*SelectOrganisationOutput, error) {
		principal, ok := domain.PrincipalFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("sign in first")
		}

		sel, err := h.guard.SelectOrganisation(ctx, principal, input.Body.OrganisationID)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		out := &SelectOrganisationOutput{SetCookie: h.cookies.make(OrgCookie, sel.String(), 0)}
		out.Body.OrganisationID = sel.OrganisationID
		return out, nil
	})
}
