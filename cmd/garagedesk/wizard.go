package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/neomorfeo/garagedesk/internal/app"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

var errAborted = errors.New("setup aborted")

// wizard drives one setup machine from the terminal, rendering each step the
// same way the HTTP API does and running the step's action on submit.
type wizard struct {
	machine    *app.Machine
	onboarding *app.Onboarding
	in         *bufio.Reader
	out        io.Writer

	// secret reads a password. It hides input when stdin is a terminal.
	secret func() (string, error)
}

func newWizard(m *app.Machine, onboarding *app.Onboarding, in io.Reader, out io.Writer) *wizard {
	w := &wizard{
		machine:    m,
		onboarding: onboarding,
		in:         bufio.NewReader(in),
		out:        out,
	}

	w.secret = w.readLine
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		w.secret = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(w.out)
			return string(b), err
		}
	}
	return w
}

func (w *wizard) run(ctx context.Context) error {
	state, err := evaluateWithSpinner(ctx, w.machine, w.out)
	if err != nil {
		return err
	}

	var actionErr error
	for {
		view, err := app.RenderWithActionError(state, actionErr)
		if err != nil {
			return err
		}
		w.header(view)
		if actionErr != nil {
			fmt.Fprintln(w.out, color.RedString("✗ ")+view.Error)
			actionErr = nil
		}

		switch {
		case view.Proceed:
			fmt.Fprintln(w.out, color.GreenString("✓")+" Setup complete. Start the server with "+color.YellowString("garagedesk serve")+".")
			return nil

		case view.Retry:
			fmt.Fprintln(w.out, color.RedString("✗ ")+view.Error)
			retry, err := w.confirm("Check again?")
			if err != nil {
				return err
			}
			if !retry {
				return errAborted
			}
			if state, err = evaluateWithSpinner(ctx, w.machine, w.out); err != nil {
				return err
			}
			continue

		case view.Loading:
			if state, err = evaluateWithSpinner(ctx, w.machine, w.out); err != nil {
				return err
			}
			continue
		}

		values, err := w.fill(view.Fields)
		if err != nil {
			return err
		}

		next, err := w.submit(ctx, view.Form, values)
		if err != nil {
			actionErr = err
			state = w.machine.Snapshot()
			continue
		}
		state = next
	}
}

func (w *wizard) header(v app.StepView) {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, color.New(color.FgCyan, color.Bold).Sprint(v.Title))
	if v.Description != "" {
		fmt.Fprintln(w.out, color.HiBlackString(v.Description))
	}

	keys := make([]string, 0, len(v.Details))
	for k := range v.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w.out, "  %s: %s\n", k, v.Details[k])
	}
}

// fill prompts for every field, repeating required ones until answered.
func (w *wizard) fill(fields []app.Field) (map[string]string, error) {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		for {
			v, err := w.ask(f)
			if err != nil {
				return nil, err
			}
			if v != "" || !f.Required {
				values[f.Name] = v
				break
			}
			fmt.Fprintln(w.out, color.YellowString("  %s is required", f.Label))
		}
	}
	return values, nil
}

func (w *wizard) ask(f app.Field) (string, error) {
	switch f.Type {
	case "choice":
		for i, opt := range f.Options {
			fmt.Fprintf(w.out, "  %d) %s\n", i+1, opt)
		}
		fmt.Fprintf(w.out, "%s [%s]: ", f.Label, f.Options[0])
		v, err := w.readLine()
		if err != nil {
			return "", err
		}
		return choose(f.Options, v), nil
	case "password":
		fmt.Fprintf(w.out, "%s: ", f.Label)
		return w.secret()
	default:
		fmt.Fprintf(w.out, "%s: ", f.Label)
		return w.readLine()
	}
}

// choose maps an answer to an option: empty picks the first, a number picks
// by position, anything else is taken as typed.
func choose(options []string, answer string) string {
	if answer == "" {
		return options[0]
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	if i := slices.Index(options, strings.ToLower(answer)); i >= 0 {
		return options[i]
	}
	return answer
}

func (w *wizard) confirm(question string) (bool, error) {
	fmt.Fprintf(w.out, "%s [Y/n]: ", question)
	v, err := w.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(v) {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (w *wizard) readLine() (string, error) {
	line, err := w.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", errAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (w *wizard) submit(ctx context.Context, form string, v map[string]string) (domain.SetupState, error) {
	switch form {
	case "super-admin":
		return w.onboarding.CreateSuperAdmin(ctx, w.machine, app.SuperAdminInput{
			Email:    v["email"],
			Name:     v["name"],
			Password: v["password"],
		})
	case "plan":
		return w.onboarding.SelectPlan(ctx, w.machine, v["plan"])
	case "organisation":
		return w.onboarding.CreateOrganisation(ctx, w.machine, app.OrganisationInput{
			Name:    v["name"],
			Slug:    v["slug"],
			Email:   v["email"],
			Phone:   v["phone"],
			Address: v["address"],
		})
	case "admin":
		return w.onboarding.CreateAdmin(ctx, w.machine, app.AdminInput{
			Email:    v["email"],
			Name:     v["name"],
			Password: v["password"],
		})
	case "sign-in":
		principal, _, state, err := w.onboarding.SignIn(ctx, w.machine, v["email"], v["password"])
		if err == nil {
			fmt.Fprintf(w.out, "Signed in as %s (%s)\n", principal.Email, principal.Role)
		}
		return state, err
	}
	return w.machine.Snapshot(), fmt.Errorf("no action for form %q", form)
}
