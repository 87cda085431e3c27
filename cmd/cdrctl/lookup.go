package main

import (
	"context"

	"crm-telephony/internal/bootstrap"

	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <phone>",
	Short: "Resolve a phone number to CRM leads and recent calls",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *bootstrap.App, args []string) error {
		res, err := app.Lookup.Lookup(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	}),
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}
