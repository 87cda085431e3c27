package main

import (
	"fmt"
	"time"

	"crm-telephony/internal/auth"
	"crm-telephony/internal/rbac"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var tokenFlags struct {
	user string
	role string
	ttl  time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API access token (for cron jobs and local testing)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !rbac.Valid(tokenFlags.role) {
			return fmt.Errorf("role must be one of %s, %s, %s", rbac.RoleAdmin, rbac.RoleManager, rbac.RoleAgent)
		}
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		m, err := auth.NewManager(cfg.Auth)
		if err != nil {
			return eris.Wrap(err, "auth")
		}
		tok, err := m.Issue(time.Now(), tokenFlags.user, tokenFlags.role, tokenFlags.ttl)
		if err != nil {
			return eris.Wrap(err, "issue token")
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
		return err
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.user, "user", "", "user id carried in the token")
	tokenCmd.Flags().StringVar(&tokenFlags.role, "role", rbac.RoleAgent, "admin, manager or agent")
	tokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", 0, "token lifetime (default auth.access_ttl)")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}
