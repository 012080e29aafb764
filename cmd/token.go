package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Alturino/pos/internal/auth"
	"github.com/Alturino/pos/internal/config"
)

// newTokenCommand issues terminal tokens for local development.
func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			rawTenant, _ := cmd.Flags().GetString("tenant")
			terminal, _ := cmd.Flags().GetString("terminal")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			tenantID, err := uuid.Parse(rawTenant)
			if err != nil {
				return fmt.Errorf("invalid tenant id=%q with error=%w", rawTenant, err)
			}
			cfg := config.InitConfig(cmd.Context(), configName(cmd))
			token, err := auth.IssueToken([]byte(cfg.Application.SecretKey), tenantID, terminal, ttl, time.Now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().String("tenant", "", "tenant id the terminal belongs to")
	cmd.Flags().String("terminal", "", "terminal id")
	cmd.Flags().Duration("ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("terminal")
	return cmd
}
