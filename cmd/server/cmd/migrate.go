package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/event-api/internal/storage/postgres"
)

type migrateOptions struct {
	path  string
	steps int
}

func newMigrateCommand(root *rootOptions) *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		Long: `Apply or roll back the record store schema in DATABASE_URL.

Migrations are embedded in the binary; --path reads them from a directory
instead.

Examples:
  server migrate up
  server migrate down --steps 1`,
	}
	cmd.PersistentFlags().StringVar(&opts.path, "path", "", "migrations directory (default: embedded migrations)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL(root)
			if err != nil {
				return err
			}
			if err := postgres.MigrateUp(url, opts.path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			url, err := databaseURL(root)
			if err != nil {
				return err
			}
			if err := postgres.MigrateDown(url, opts.path, opts.steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", opts.steps)
			return nil
		},
	}
	down.Flags().IntVar(&opts.steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

func databaseURL(root *rootOptions) (string, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return "", fmt.Errorf("config error: %w", err)
	}
	if cfg.Database.URL == "" {
		return "", fmt.Errorf("DATABASE_URL is required for migrations")
	}
	return cfg.Database.URL, nil
}
