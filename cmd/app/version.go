package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osse101/MinerSync_Go/internal/handler"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (commit %s, built %s)\n", handler.GetVersion(), handler.GitCommit, handler.BuildTime)
			return err
		},
	}
}
