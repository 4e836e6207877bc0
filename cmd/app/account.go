package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osse101/MinerSync_Go/internal/bootstrap"
	"github.com/osse101/MinerSync_Go/internal/domain"
)

func newAccountCmd() *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the remote account row",
	}

	accountCmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create ACCOUNT_ID in PostgreSQL if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.UsesPostgres() {
				return fmt.Errorf("account create needs REMOTE_BACKEND=postgres, got %q", cfg.RemoteBackend)
			}
			if err := bootstrap.EnsureAccount(cmd.Context(), cfg, domain.NewRealClock()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "account %s ready\n", cfg.AccountID)
			return err
		},
	})

	return accountCmd
}
