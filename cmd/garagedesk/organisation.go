package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

func newOrganisationCmd(configPath *string) *cobra.Command {
	org := &cobra.Command{
		Use:     "organisation",
		Aliases: []string{"org"},
		Short:   "Manage garages as the deployment operator",
	}

	org.AddCommand(newOrganisationStatusCmd(configPath, "suspend", domain.OrganisationSuspended,
		"Suspend a garage; its users are refused until it is reactivated"))
	org.AddCommand(newOrganisationStatusCmd(configPath, "activate", domain.OrganisationActive,
		"Reactivate a suspended garage"))

	return org
}

func newOrganisationStatusCmd(configPath *string, use string, status domain.OrganisationStatus, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <organisation-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			id := args[0]
			if err := store.SetOrganisationStatus(cmd.Context(), id, status); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("organisation %q not found", id)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s organisation %s is now %s\n", color.GreenString("✓"), id, status)
			return nil
		},
	}
}
