package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func archiveCMD() *cobra.Command {
	var cleanup bool

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "List historical archives and optionally apply retention cleanup",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			archiver := newArchiver(cfg)

			if cleanup {
				removed, err := archiver.CleanupExpired()
				if err != nil {
					return err
				}
				fmt.Printf("removed %d expired archive folders\n", removed)
			}

			manifests, err := archiver.ListArchives()
			if err != nil {
				return err
			}
			if len(manifests) == 0 {
				fmt.Println("no archives")
				return nil
			}
			for _, m := range manifests {
				fmt.Printf("%s  %-4s  run %s  %d files\n",
					m.ArchivedAt.Format("2006-01-02 15:04:05"), m.Stage, m.RunID, len(m.Files))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "delete archives past retention before listing")
	return cmd
}
