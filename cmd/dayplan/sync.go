package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/dayplan/internal/mirror"
	"github.com/sandeepkv93/dayplan/internal/syncqueue"
)

func syncCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror local task changes to the external task service",
	}
	cmd.AddCommand(syncRunCmd(configPath))
	return cmd
}

func syncRunCmd(configPath *string) *cobra.Command {
	var loop bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deliver pending sync jobs once, or keep delivering with --loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			client, err := mirror.New(a.cfg.Sync.MirrorURL, a.cfg.Sync.MirrorToken, nil)
			if err != nil {
				return err
			}
			proc := syncqueue.NewProcessor(a.repo, client, a.logger)
			if loop {
				return proc.Run(ctx, a.cfg.Sync.Interval, a.cfg.Sync.BatchSize)
			}
			stats, err := proc.RunBatch(ctx, a.cfg.Sync.BatchSize)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "processed %d: %d succeeded, %d retried, %d failed\n",
				stats.Processed, stats.Succeeded, stats.Retried, stats.Failed)
			return err
		},
	}
	cmd.Flags().BoolVar(&loop, "loop", false, "keep running at the configured sync interval")
	return cmd
}
