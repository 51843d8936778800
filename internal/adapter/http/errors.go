package http

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/garagedesk/internal/app"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(ctx context.Context, err error) error {
	msg := err.Error()

	var stepErr *domain.StepActionError
	if errors.As(err, &stepErr) {
		err = stepErr.Err
	}

	var (
		slugErr  *domain.SlugConflictError
		emailErr *domain.EmailConflictError
		trErr    *domain.TransitionError
		roleErr  *domain.InsufficientRoleError
		probeErr *domain.ProbeTransportError
	)

	switch {
	case errors.As(err, &slugErr), errors.As(err, &emailErr):
		return huma.Error409Conflict(msg)
	case errors.As(err, &trErr), errors.Is(err, domain.ErrSuperAdminExists):
		return huma.Error409Conflict(msg)
	case errors.Is(err, domain.ErrInvalidPlan), errors.Is(err, domain.ErrPasswordTooShort):
		return huma.Error422UnprocessableEntity(msg)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return huma.Error401Unauthorized(msg)
	case errors.As(err, &roleErr), errors.Is(err, domain.ErrOrganisationRequired):
		return huma.Error403Forbidden(msg)
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("not found")
	case errors.Is(err, domain.ErrSetupSessionNotFound):
		return huma.Error404NotFound(msg)
	case errors.Is(err, app.ErrMachineClosed):
		return huma.Error410Gone(msg)
	case errors.As(err, &probeErr):
		return huma.Error503ServiceUnavailable(msg)
	}

	slog.ErrorContext(ctx, "request failed", "error", err)
	return huma.Error500InternalServerError("internal server error")
}

// StepErrorModel is the error body of a failed step action. Setup renders the
// step the session stayed on, with the failure shown inline.
type StepErrorModel struct {
	huma.ErrorModel
	Setup *StepResponse `json:"setup,omitempty"`
}

// stepError translates err like toHumaError and attaches the current step of
// m rendered with the failure.
func stepError(ctx context.Context, m *app.Machine, err error) error {
	herr := toHumaError(ctx, err)
	model, ok := herr.(*huma.ErrorModel)
	if !ok || m == nil || errors.Is(err, app.ErrMachineClosed) {
		return herr
	}

	state := m.Snapshot()
	view, rerr := app.RenderWithActionError(state, err)
	if rerr != nil {
		return herr
	}
	resp := toStepResponse(view, state)
	return &StepErrorModel{ErrorModel: *model, Setup: &resp}
}
