package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidPlan          = errors.New("unknown plan")
	ErrSetupSessionNotFound = errors.New("setup session not found")
	ErrOrganisationRequired = errors.New("organisation required")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrPasswordTooShort     = errors.New("password must be at least 8 characters")
	ErrSuperAdminExists     = errors.New("a super-admin already exists")
)

// SlugConflictError is returned when an organisation slug is already in use.
type SlugConflictError struct {
	Slug string
}

func (e *SlugConflictError) Error() string {
	return fmt.Sprintf("slug %q is already in use", e.Slug)
}

// EmailConflictError is returned when an account email is already registered.
type EmailConflictError struct {
	Email string
}

func (e *EmailConflictError) Error() string {
	return fmt.Sprintf("email %q is already registered", e.Email)
}

// TransitionError is returned when an event is not accepted by the current step.
type TransitionError struct {
	Event   Event
	Current Step
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from step %q", e.Event, e.Current)
}

// ProbeTransportError is returned when a probe could not reach the backend.
type ProbeTransportError struct {
	Probe   string
	Timeout bool
	Err     error
}

func (e *ProbeTransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("probe %s timed out: %v", e.Probe, e.Err)
	}
	return fmt.Sprintf("probe %s failed: %v", e.Probe, e.Err)
}

func (e *ProbeTransportError) Unwrap() error { return e.Err }

// SetupIncompleteError reports that the workflow has not reached StepComplete.
// It is a normal state, not a failure.
type SetupIncompleteError struct {
	Step Step
}

func (e *SetupIncompleteError) Error() string {
	return fmt.Sprintf("setup incomplete: current step is %q", e.Step)
}

// InsufficientRoleError is returned when an authenticated principal lacks a
// role required by the route.
type InsufficientRoleError struct {
	Role     Role
	Required []Role
}

func (e *InsufficientRoleError) Error() string {
	names := make([]string, len(e.Required))
	for i, r := range e.Required {
		names[i] = string(r)
	}
	return fmt.Sprintf("role %q is not allowed, requires one of [%s]", e.Role, strings.Join(names, ", "))
}

// StepActionError is returned when a step's completion action fails. The
// workflow stays on Step.
type StepActionError struct {
	Step   Step
	Action string
	Err    error
}

func (e *StepActionError) Error() string {
	return fmt.Sprintf("%s failed at step %q: %v", e.Action, e.Step, e.Err)
}

func (e *StepActionError) Unwrap() error { return e.Err }

// UnhandledStepError is returned by the renderer for a step it does not know.
type UnhandledStepError struct {
	Step Step
}

func (e *UnhandledStepError) Error() string {
	return fmt.Sprintf("no view for step %q", e.Step)
}
