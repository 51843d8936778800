package fsm

import (
	"context"
	"errors"
	"fmt"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

var _ domain.TransitionValidator = (*Validator)(nil)

// Validator checks setup transitions against domain.Transitions with
// looplab/fsm. The library keeps its own current state, so every Apply seeds
// a throwaway machine at the caller's step.
type Validator struct {
	table loopfsm.Events
}

func New() *Validator {
	return &Validator{table: table(domain.Transitions)}
}

// table folds transitions that share an event and a destination into a
// single EventDesc; reset is listed once with every step as a source.
func table(transitions []domain.Transition) loopfsm.Events {
	type key struct {
		event domain.Event
		dst   domain.Step
	}
	var out loopfsm.Events
	index := make(map[key]int)

	for _, tr := range transitions {
		k := key{tr.Event, tr.Dst}
		if i, ok := index[k]; ok {
			out[i].Src = append(out[i].Src, string(tr.Src))
			continue
		}
		index[k] = len(out)
		out = append(out, loopfsm.EventDesc{
			Name: string(tr.Event),
			Src:  []string{string(tr.Src)},
			Dst:  string(tr.Dst),
		})
	}
	return out
}

// Apply returns the step event leads to from current, or a
// *domain.TransitionError when current does not accept event.
func (v *Validator) Apply(ctx context.Context, current domain.Step, event domain.Event) (domain.Step, error) {
	m := loopfsm.NewFSM(string(current), v.table, nil)
	if !m.Can(string(event)) {
		return "", &domain.TransitionError{Event: event, Current: current}
	}

	err := m.Event(ctx, string(event))
	var same loopfsm.NoTransitionError
	switch {
	case err == nil:
	case errors.As(err, &same):
		// self-loop: reset while still checking
	default:
		return "", fmt.Errorf("%s from %s: %w", event, current, err)
	}
	return domain.Step(m.Current()), nil
}
