package main

import (
	"context"
	"os"
	"time"

	"crm-telephony/internal/bootstrap"
	"crm-telephony/internal/ingest"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var syncFlags struct {
	from      string
	to        string
	extension string
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the PBX feed for a date range and store new call logs",
	Example: `  cdrctl sync                                # yesterday and today
  cdrctl sync --from 2024-03-01 --to 2024-03-07
  cdrctl sync --from 2024-03-01 --to 2024-03-01 --extension 101`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *bootstrap.App, _ []string) error {
		from, to := defaultRange(time.Now(), syncFlags.from, syncFlags.to)
		r, err := ingest.ParseRange(from, to, app.Config.Sync.MaxRangeDays)
		if err != nil {
			return eris.Wrapf(err, "range %s..%s (max %d days)", from, to, app.Config.Sync.MaxRangeDays)
		}

		ctx = ingest.WithActor(ctx, ingest.Actor{Origin: "cli", UserID: os.Getenv("USER")})
		res, err := app.Ingest.SyncRange(ctx, r, syncFlags.extension)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	}),
}

// defaultRange fills empty bounds with yesterday and today.
func defaultRange(now time.Time, from, to string) (string, string) {
	if to == "" {
		to = now.Format("2006-01-02")
	}
	if from == "" {
		from = now.AddDate(0, 0, -1).Format("2006-01-02")
	}
	return from, to
}

func init() {
	syncCmd.Flags().StringVar(&syncFlags.from, "from", "", "first day, YYYY-MM-DD (default yesterday)")
	syncCmd.Flags().StringVar(&syncFlags.to, "to", "", "last day, YYYY-MM-DD (default today)")
	syncCmd.Flags().StringVar(&syncFlags.extension, "extension", "", "only fetch calls for this extension or phone")
	rootCmd.AddCommand(syncCmd)
}
