package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/neomorfeo/garagedesk/internal/app"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

func newSetupCmd(configPath *string) *cobra.Command {
	setup := &cobra.Command{
		Use:   "setup",
		Short: "Inspect or run the first-run setup",
		Long: `Setup walks a fresh deployment from its first super-admin to a signed-in
garage administrator. 'status' reports where the database stands; 'wizard'
completes the remaining steps from the terminal.`,
	}
	setup.AddCommand(newSetupStatusCmd(configPath))
	setup.AddCommand(newSetupWizardCmd(configPath))
	return setup
}

// StatusResult is the --json output of 'setup status'.
type StatusResult struct {
	Step             string `json:"step"`
	Title            string `json:"title"`
	Complete         bool   `json:"complete"`
	HasSuperAdmin    bool   `json:"has_super_admin"`
	HasOrganisations bool   `json:"has_organisations"`
	HasAdmin         bool   `json:"has_admin"`
	Error            string `json:"error,omitempty"`
}

func newSetupStatusCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Probe the database and print the current setup step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := wire(cmd.Context(), cfg, store)
			if err != nil {
				return err
			}

			m := svc.newMachine()
			defer m.Close()

			out := cmd.OutOrStdout()
			state, err := evaluateWithSpinner(cmd.Context(), m, out)
			if err != nil {
				return err
			}

			view, err := app.Render(state)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(StatusResult{
					Step:             string(state.Step),
					Title:            view.Title,
					Complete:         view.Proceed,
					HasSuperAdmin:    state.HasSuperAdmin,
					HasOrganisations: state.HasOrganisations,
					HasAdmin:         state.HasAdmin,
					Error:            state.Error,
				})
			}

			printStatus(out, state, view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func printStatus(w io.Writer, state domain.SetupState, view app.StepView) {
	mark := func(ok bool) string {
		if ok {
			return color.GreenString("✓")
		}
		return color.RedString("✗")
	}

	fmt.Fprintf(w, "%s super-admin\n", mark(state.HasSuperAdmin))
	fmt.Fprintf(w, "%s organisation\n", mark(state.HasOrganisations))
	fmt.Fprintf(w, "%s garage administrator\n", mark(state.HasAdmin))

	if state.Error != "" {
		fmt.Fprintln(w, color.RedString("error: ")+state.Error)
	}

	fmt.Fprintf(w, "\nNext step: %s (%s)\n", color.CyanString(string(state.Step)), view.Title)
	if !view.Proceed {
		fmt.Fprintln(w, "Run "+color.YellowString("garagedesk setup wizard")+" to continue.")
	}
}

func newSetupWizardCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Complete the setup interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := wire(cmd.Context(), cfg, store)
			if err != nil {
				return err
			}

			m := svc.newMachine()
			defer m.Close()

			w := newWizard(m, svc.onboarding, cmd.InOrStdin(), cmd.OutOrStdout())
			return w.run(cmd.Context())
		},
	}
}

// evaluateWithSpinner runs the probes, spinning while they settle when out
// is a terminal.
func evaluateWithSpinner(ctx context.Context, m *app.Machine, out io.Writer) (domain.SetupState, error) {
	if isTerminal(out) {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
		s.Suffix = " Checking setup"
		_ = s.Color("cyan")
		s.Start()
		defer s.Stop()
	}
	return m.Evaluate(ctx)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
