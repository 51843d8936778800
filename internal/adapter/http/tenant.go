package http

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// OrganisationResponse is the API representation of a garage.
type OrganisationResponse struct {
	ID        string `json:"id" doc:"Unique identifier"`
	Name      string `json:"name" doc:"Display name"`
	Slug      string `json:"slug" doc:"URL-friendly identifier"`
	Plan      string `json:"plan" doc:"Subscription plan"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Status    string `json:"status" doc:"Lifecycle state"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toOrganisationResponse(o domain.Organisation) OrganisationResponse {
	return OrganisationResponse{
		ID:        o.ID,
		Name:      o.Name,
		Slug:      o.Slug,
		Plan:      o.Plan,
		Email:     o.Email,
		Phone:     o.Phone,
		Address:   o.Address,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt.Format(timeFormat),
	}
}

// UserResponse is the API representation of a garage user.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

type MeOutput struct {
	Body struct {
		Principal      PrincipalResponse `json:"principal"`
		OrganisationID string            `json:"organisation_id" doc:"Organisation the request is scoped to"`
	}
}

type OrganisationOutput struct {
	Body OrganisationResponse
}

type ListUsersOutput struct {
	Body []UserResponse
}

// scope returns the principal and organisation the access guard admitted.
func scope(ctx context.Context) (domain.Principal, string, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.Principal{}, "", huma.Error401Unauthorized("sign in first")
	}
	orgID, ok := domain.OrganisationFromContext(ctx)
	if !ok {
		return domain.Principal{}, "", huma.Error403Forbidden(domain.ErrOrganisationRequired.Error())
	}
	return p, orgID, nil
}

// registerWorkspace adds the routes every signed-in role may use.
func registerWorkspace(api huma.API, store domain.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/api/v1/me",
		Summary:     "Get the signed-in caller",
		Tags:        []string{"Workspace"},
	}, func(ctx context.Context, _ *struct{}) (*MeOutput, error) {
		p, orgID, err := scope(ctx)
		if err != nil {
			return nil, err
		}
		out := &MeOutput{}
		out.Body.Principal = toPrincipalResponse(p)
		out.Body.OrganisationID = orgID
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-organisation",
		Method:      http.MethodGet,
		Path:        "/api/v1/organisation",
		Summary:     "Get the current garage",
		Tags:        []string{"Workspace"},
	}, func(ctx context.Context, _ *struct{}) (*OrganisationOutput, error) {
		_, orgID, err := scope(ctx)
		if err != nil {
			return nil, err
		}
		org, err := store.GetOrganisation(ctx, orgID)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &OrganisationOutput{Body: toOrganisationResponse(org)}, nil
	})
}

// registerStaff adds the routes limited to garage managers.
func registerStaff(api huma.API, store domain.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/api/v1/users",
		Summary:     "List the garage's users",
		Tags:        []string{"Workspace"},
	}, func(ctx context.Context, _ *struct{}) (*ListUsersOutput, error) {
		_, orgID, err := scope(ctx)
		if err != nil {
			return nil, err
		}

		users, err := store.ListUsers(ctx, orgID)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		resp := make([]UserResponse, len(users))
		for i, u := range users {
			resp[i] = UserResponse{
				ID:        u.ID,
				Email:     u.Email,
				Name:      u.Name,
				Role:      string(u.Role),
				Active:    u.Active,
				CreatedAt: u.CreatedAt.Format(timeFormat),
			}
		}
		return &ListUsersOutput{Body: resp}, nil
	})
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Organisation.Name}} · GarageDesk</title></head>
<body>
<header><h1>{{.Organisation.Name}}</h1><p>Plan: {{.Organisation.Plan}}</p></header>
<p>Signed in as {{.Principal.Name}} ({{.Principal.Role}})</p>
</body>
</html>
`))

// dashboard renders the garage home page. It sits behind RequireAccess, so
// it only ever renders for an admitted principal.
func dashboard(store domain.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, orgID, err := scope(ctx)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		org, err := store.GetOrganisation(ctx, orgID)
		if err != nil {
			slog.ErrorContext(ctx, "loading dashboard organisation", "organisation_id", orgID, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := dashboardTemplate.Execute(w, map[string]any{"Principal": p, "Organisation": org}); err != nil {
			slog.ErrorContext(ctx, "rendering dashboard", "error", err)
		}
	}
}
