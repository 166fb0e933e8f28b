package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/dayplan/internal/storage"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			repo, err := storage.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer repo.Close()

			apply := storage.MigrateUp
			if args[0] == "down" {
				apply = storage.MigrateDown
			}
			applied, err := apply(cmd.Context(), repo.DB())
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return err
		},
	}
}
