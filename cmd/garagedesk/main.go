package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "garagedesk",
		Short: "GarageDesk - multi-tenant garage management",
		Long: `GarageDesk runs the garage management API and its first-run setup.

Without a subcommand it starts the HTTP server, the same as 'garagedesk serve'.
Settings come from an optional TOML file (--config or $GARAGEDESK_CONFIG) and
environment variables, which win over the file.`,
		SilenceUsage: true,
		Version:      version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newSetupCmd(&configPath))
	root.AddCommand(newOrganisationCmd(&configPath))

	return root
}
