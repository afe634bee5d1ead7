package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsgrade/config"
)

func main() {
	root := &cobra.Command{
		Use:   "newsgrade",
		Short: "Multi-agent news scoring pipeline",
	}
	root.AddCommand(runCMD(), serveCMD(), archiveCMD(), migrateCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
