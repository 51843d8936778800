package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

// DefaultProbeTimeout bounds one evaluation round when no timeout is configured.
const DefaultProbeTimeout = 10 * time.Second

// ErrMachineClosed is returned by a machine after Close.
var ErrMachineClosed = errors.New("setup machine closed")

// Machine owns one SetupState and sequences the initialization workflow.
// The state is only mutated here: Evaluate applies probe results, the event
// methods apply explicit transitions.
type Machine struct {
	prober    domain.ExistenceProber
	validator domain.TransitionValidator
	timeout   time.Duration

	mu         sync.Mutex
	state      domain.SetupState
	lastErr    error
	generation uint64
	closed     bool

	// action is held by a step action from its step check to its transition.
	action sync.Mutex
}

// NewMachine creates a machine in the checking step. A non-positive timeout
// falls back to DefaultProbeTimeout.
func NewMachine(prober domain.ExistenceProber, validator domain.TransitionValidator, timeout time.Duration) *Machine {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Machine{
		prober:    prober,
		validator: validator,
		timeout:   timeout,
		state:     domain.NewSetupState(),
	}
}

// hold keeps other step actions off m until release is called.
func (m *Machine) hold() (release func()) {
	m.action.Lock()
	return m.action.Unlock
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() domain.SetupState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// LastError returns the probe failure from the most recent evaluation, if any.
func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Close discards the machine. Evaluations still in flight are dropped when
// they settle.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.generation++
}

// Evaluate runs all four probes, waits for every one of them to settle, and
// derives the step. A failed probe forces StepSuperAdmin and records the error.
// Results that arrive after Close, Reset, or a newer evaluation are discarded.
func (m *Machine) Evaluate(ctx context.Context) (domain.SetupState, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.SetupState{}, ErrMachineClosed
	}
	m.generation++
	gen := m.generation
	m.state.IsLoading = true
	var organisationID string
	if m.state.OrganisationData != nil {
		organisationID = m.state.OrganisationData.ID
	}
	m.mu.Unlock()

	results := m.probe(ctx, organisationID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		slog.DebugContext(ctx, "discarding evaluation after close")
		return m.state.Clone(), ErrMachineClosed
	}
	if gen != m.generation {
		slog.DebugContext(ctx, "discarding stale evaluation", "generation", gen, "current", m.generation)
		return m.state.Clone(), nil
	}

	m.apply(ctx, results)
	return m.state.Clone(), nil
}

type probeResults struct {
	superAdmin   domain.ProbeResult
	organisation domain.ProbeResult
	admin        domain.ProbeResult
	session      domain.ProbeResult
}

func (m *Machine) probe(ctx context.Context, organisationID string) probeResults {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var r probeResults
	var g errgroup.Group
	g.Go(func() error {
		r.superAdmin = m.prober.SuperAdminExists(ctx)
		return nil
	})
	g.Go(func() error {
		r.organisation = m.prober.OrganisationExists(ctx)
		return nil
	})
	g.Go(func() error {
		r.admin = m.prober.AdminExists(ctx, organisationID)
		return nil
	})
	g.Go(func() error {
		r.session = m.prober.SessionPresent(ctx)
		return nil
	})
	_ = g.Wait()

	return r
}

// apply must be called with m.mu held.
func (m *Machine) apply(ctx context.Context, r probeResults) {
	m.state.IsLoading = false

	hasSuperAdmin, errSuperAdmin := settle(r.superAdmin)
	hasOrganisations, errOrganisation := settle(r.organisation)
	hasAdmin, errAdmin := settle(r.admin)
	isAuthenticated, errSession := settle(r.session)

	if err := errors.Join(errSuperAdmin, errOrganisation, errAdmin, errSession); err != nil {
		slog.WarnContext(ctx, "setup probe failed, falling back to first step", "error", err)
		m.lastErr = firstError(errSuperAdmin, errOrganisation, errAdmin, errSession)
		m.state.Error = m.lastErr.Error()
		m.state.Step = domain.StepSuperAdmin
		return
	}

	m.lastErr = nil
	m.state.Error = ""
	m.state.HasSuperAdmin = hasSuperAdmin
	m.state.HasOrganisations = hasOrganisations
	m.state.HasAdmin = hasAdmin
	m.state.IsAuthenticated = isAuthenticated
	m.state.Step = domain.Resolve(m.state.Step, hasSuperAdmin, hasOrganisations, hasAdmin, isAuthenticated)
}

// settle unpacks a probe result. Every outcome of the closed set is handled.
func settle(r domain.ProbeResult) (bool, error) {
	switch v := r.(type) {
	case domain.Exists:
		return true, nil
	case domain.NotFound:
		return false, nil
	case domain.ProbeFailed:
		return false, v.Err
	default:
		return false, fmt.Errorf("unexpected probe result %T", r)
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// SuperAdminCreated moves past the super-admin step and re-evaluates.
func (m *Machine) SuperAdminCreated(ctx context.Context) (domain.SetupState, error) {
	return m.fire(ctx, domain.EventSuperAdminCreated, func(s *domain.SetupState) {
		s.HasSuperAdmin = true
	})
}

// SelectPlan records the chosen plan and moves to the organisation step.
func (m *Machine) SelectPlan(ctx context.Context, plan string) (domain.SetupState, error) {
	if !domain.ValidPlan(plan) {
		return m.Snapshot(), domain.ErrInvalidPlan
	}
	return m.fire(ctx, domain.EventPlanSelected, func(s *domain.SetupState) {
		s.SelectedPlan = plan
	})
}

// OrganisationCreated captures the new organisation and moves to the admin step.
func (m *Machine) OrganisationCreated(ctx context.Context, data domain.OrganisationData) (domain.SetupState, error) {
	return m.fire(ctx, domain.EventOrganisationCreated, func(s *domain.SetupState) {
		s.OrganisationData = &data
		s.HasOrganisations = true
		if data.Plan != "" {
			s.SelectedPlan = data.Plan
		}
	})
}

// AdminCreated moves to the sign-in step.
func (m *Machine) AdminCreated(ctx context.Context) (domain.SetupState, error) {
	return m.fire(ctx, domain.EventAdminCreated, func(s *domain.SetupState) {
		s.HasAdmin = true
	})
}

// Authenticated completes the workflow.
func (m *Machine) Authenticated(ctx context.Context) (domain.SetupState, error) {
	return m.fire(ctx, domain.EventAuthenticated, func(s *domain.SetupState) {
		s.IsAuthenticated = true
	})
}

// Reset discards every selection and re-derives the step from scratch.
func (m *Machine) Reset(ctx context.Context) (domain.SetupState, error) {
	return m.fire(ctx, domain.EventReset, func(s *domain.SetupState) {
		*s = domain.NewSetupState()
	})
}

// fire validates event against the current step, applies mutate, and moves to
// the destination. A checking destination triggers a fresh evaluation.
func (m *Machine) fire(ctx context.Context, event domain.Event, mutate func(*domain.SetupState)) (domain.SetupState, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.SetupState{}, ErrMachineClosed
	}

	dst, err := m.validator.Apply(ctx, m.state.Step, event)
	if err != nil {
		snapshot := m.state.Clone()
		m.mu.Unlock()
		return snapshot, err
	}

	if mutate != nil {
		mutate(&m.state)
	}
	m.state.Step = dst
	m.state.IsLoading = false
	// Any in-flight evaluation read the old state.
	m.generation++
	snapshot := m.state.Clone()
	m.mu.Unlock()

	slog.DebugContext(ctx, "setup transition", "event", event, "step", dst)

	if dst == domain.StepChecking {
		return m.Evaluate(ctx)
	}
	return snapshot, nil
}
