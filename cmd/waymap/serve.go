package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/azybler/waymap/pkg/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the data source and serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ds, err := openDataset(ctx)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		scfg := api.DefaultConfig(fmt.Sprintf(":%d", port))
		scfg.ReadTimeout = cfg.Server.ReadTimeout
		scfg.WriteTimeout = cfg.Server.WriteTimeout
		scfg.RequestTimeout = cfg.Server.RequestTimeout
		scfg.MaxConcurrent = cfg.Server.MaxConcurrent
		scfg.CORSOrigin = cfg.Server.CORSOrigin
		scfg.RateLimit = cfg.Server.RateLimit
		scfg.RateBurst = cfg.Server.RateBurst

		srv := api.NewServer(scfg, api.NewHandlers(ds.Store, ds.exportOpt))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return api.Serve(gctx, srv)
		})
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "server listen")
		}
		zap.L().Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
