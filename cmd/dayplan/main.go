package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "dayplan",
		Short:         "Plan today's tasks around energy, focus and the calendar",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("DAYPLAN_CONFIG"), "path to a YAML config file")

	root.AddCommand(tuiCmd(&configPath))
	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(planCmd(&configPath))
	root.AddCommand(taskCmd(&configPath))
	root.AddCommand(busyCmd(&configPath))
	root.AddCommand(syncCmd(&configPath))
	root.AddCommand(migrateCmd(&configPath))
	root.AddCommand(tokenCmd(&configPath))
	return root
}
