// Command migrate applies the embedded SQL migrations to DATABASE_URL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"asset-registry/backend/internal/config"
	"asset-registry/backend/internal/db/migrate"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the asset registry database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dsn != "" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dsn = cfg.DatabaseURL
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Postgres DSN (defaults to DATABASE_URL)")

	cmd.AddCommand(newDirectionCommand("up", "Apply all pending migrations", migrate.Up, &dsn))
	cmd.AddCommand(newDirectionCommand("down", "Roll back all migrations", migrate.Down, &dsn))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, dirty, err := migrate.Version(dsn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
			return nil
		},
	})
	return cmd
}

func newDirectionCommand(use, short string, dir migrate.Direction, dsn *string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrate.Run(*dsn, dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", use)
			return nil
		},
	}
}
