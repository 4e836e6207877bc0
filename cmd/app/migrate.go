package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osse101/MinerSync_Go/internal/bootstrap"
	"github.com/osse101/MinerSync_Go/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|reset]",
		Short:     "Apply or inspect the remote PostgreSQL schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{database.MigrateUp, database.MigrateDown, database.MigrateStatus, database.MigrateReset},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := database.MigrateUp
			if len(args) == 1 {
				command = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.UsesPostgres() {
				return fmt.Errorf("migrate needs REMOTE_BACKEND=postgres, got %q", cfg.RemoteBackend)
			}

			pool, err := database.NewPool(cmd.Context(), bootstrap.PoolConfig(cfg))
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.Migrate(cmd.Context(), pool, command); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", command)
			return err
		},
	}
}
