package main

import (
	"context"
	"fmt"

	"crm-telephony/internal/bootstrap"
	"crm-telephony/internal/store"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *bootstrap.App, _ []string) error {
		if err := store.Migrate(ctx, app.DB); err != nil {
			return err
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return err
	}),
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
