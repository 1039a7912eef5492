package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"field-crm/pkg/database/migrations"
	"field-crm/pkg/database/postgresql"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateSubcommand("up", "Apply all pending migrations", migrations.Up),
		migrateSubcommand("down", "Roll back the most recent migration", migrations.Down),
		migrateSubcommand("status", "Print the state of every migration", migrations.Status),
	)
	return cmd
}

func migrateSubcommand(use, short string, run func(ctx context.Context, pool *pgxpool.Pool) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			pool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := run(ctx, pool); err != nil {
				return err
			}
			logger.Info("migrate " + use + " finished")
			return nil
		},
	}
}
