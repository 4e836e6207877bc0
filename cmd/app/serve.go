package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/osse101/MinerSync_Go/internal/bootstrap"
	"github.com/osse101/MinerSync_Go/internal/handler"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the session daemon and its local HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logFile, err := bootstrap.SetupLogger(cfg, handler.GetVersion())
			if err != nil {
				return err
			}
			defer logFile.Close()
			for _, w := range cfg.Warnings() {
				slog.Warn(w)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.Build(ctx, cfg)
			if err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}
}
