package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsgrade/internal/server"
	"github.com/mohammad-safakhou/newsgrade/internal/telemetry"
)

func serveCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ops HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			if runStore != nil {
				defer runStore.Close()
			}
			idx, err := openIndex(cfg)
			if err != nil {
				return err
			}
			defer idx.Close()
			matrix, err := newMatrix(cfg)
			if err != nil {
				return err
			}
			if cfg.Telemetry.Enabled {
				telemetry.NewMetrics()
			}

			var history server.RunHistory
			if runStore != nil {
				history = runStore
			}
			srv := server.New(cfg, history, newArchiver(cfg), idx, matrix, telemetry.NewLogger("HTTP"))
			return srv.Run(ctx)
		},
	}
}
