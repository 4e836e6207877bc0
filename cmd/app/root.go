package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/osse101/MinerSync_Go/internal/config"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "minersync",
		Short:         "MinerSync: mining session sync daemon",
		Long:          "minersync runs the local session daemon the mobile shell talks to, keeps the mining session in sync with the remote account store, and manages the device identity and database schema.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newDeviceCmd(),
		newAccountCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// loadConfig is shared by every subcommand that needs the environment. Load
// reads .env first, so the schema check sees its values.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := config.CheckEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}
