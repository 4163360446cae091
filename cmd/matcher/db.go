package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gss-opera-matcher/internal/db"
)

// createDBCmd creates the db command group
func createDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.NewConnection(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := conn.Migrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Check connectivity and count stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.NewConnection(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer conn.Close()

			var runs int
			if err := conn.DB.GetContext(cmd.Context(), &runs, "SELECT COUNT(*) FROM match_runs"); err != nil {
				return fmt.Errorf("failed to count runs: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connected, %d stored runs\n", runs)
			return nil
		},
	})

	return cmd
}
