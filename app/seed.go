package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"field-crm/seeders"
)

func newSeedCmd() *cobra.Command {
	var withLocations bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo technicians and salespeople and print an admin token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			app, err := newApplication(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.close()

			if err := seeders.SeedRoster(ctx, app.services.Roster, logger); err != nil {
				return err
			}
			if withLocations {
				if err := seeders.SeedLocations(ctx, app.services.Technicians, logger); err != nil {
					return err
				}
			}

			token, err := seeders.DemoToken(app.jwt)
			if err != nil {
				logger.Error("could not sign demo token", zap.Error(err))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withLocations, "locations", true, "also record a GPS fix for every demo technician")
	return cmd
}
