package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"crm-telephony/internal/bootstrap"
	"crm-telephony/internal/config"
	"crm-telephony/pkg/logger"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "cdrctl",
	Short:        "Operate the PBX call-log sync and CTI lookup",
	Long:         "cdrctl runs call-log syncs from cron, resolves phone numbers, applies migrations and issues API tokens.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("CONFIG_FILE"), "optional YAML config file (env vars override it)")
}

func execute(ctx context.Context) error {
	rootCmd.SetContext(ctx)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "err", err)
		return err
	}
	return nil
}

// loadConfig reads configuration and installs the process logger.
func loadConfig(cmd *cobra.Command) (config.Config, context.Context, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, eris.Wrap(err, "load config")
	}
	log := logger.New(cfg.App.Env).With("command", cmd.CommandPath())
	slog.SetDefault(log)
	return cfg, logger.With(cmd.Context(), log), nil
}

// withApp builds the full service graph for the duration of one command.
func withApp(run func(ctx context.Context, cmd *cobra.Command, app *bootstrap.App, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, ctx, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := bootstrap.New(ctx, cfg, logger.From(ctx))
		if err != nil {
			return eris.Wrap(err, "bootstrap")
		}
		defer app.Close()
		return run(ctx, cmd, app, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
