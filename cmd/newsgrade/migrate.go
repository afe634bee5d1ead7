package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			runStore, err := openStore(context.Background(), cfg)
			if err != nil {
				return err
			}
			if runStore == nil {
				return fmt.Errorf("no database configured (set DATABASE_URL or storage.postgres)")
			}
			defer runStore.Close()
			return runStore.Migrate()
		},
	}
}
