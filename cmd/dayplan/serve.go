package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/dayplan/internal/httpapi"
	"github.com/sandeepkv93/dayplan/internal/mirror"
	"github.com/sandeepkv93/dayplan/internal/syncqueue"
)

func serveCmd(configPath *string) *cobra.Command {
	var withSync bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planning HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			issuer, err := a.issuer()
			if err != nil {
				return err
			}

			if withSync && a.cfg.Sync.MirrorURL != "" {
				client, err := mirror.New(a.cfg.Sync.MirrorURL, a.cfg.Sync.MirrorToken, nil)
				if err != nil {
					return err
				}
				proc := syncqueue.NewProcessor(a.repo, client, a.logger)
				go func() {
					if err := proc.Run(ctx, a.cfg.Sync.Interval, a.cfg.Sync.BatchSize); err != nil {
						a.logger.WithError(err).Error("sync loop stopped")
					}
				}()
			}

			srv := httpapi.New(a.planner, issuer, a.logger, httpapi.Config{
				Addr:            a.cfg.HTTP.Addr,
				AllowedOrigins:  a.cfg.HTTP.AllowedOrigins,
				ShutdownTimeout: a.cfg.HTTP.ShutdownTimeout,
			})
			a.logger.Info("http api listening", "addr", a.cfg.HTTP.Addr)
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().BoolVar(&withSync, "sync", true, "run the mirror sync loop alongside the API when a mirror url is configured")
	return cmd
}
