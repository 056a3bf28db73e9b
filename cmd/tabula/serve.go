package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sambeau/tabula/config"
	"github.com/sambeau/tabula/pkg/logging"
	"github.com/sambeau/tabula/server"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		port  int
		dev   bool
		quiet bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editors over HTTP",
		Long: `Serves the JSON API: GET /api/editors, GET /api/view, GET /api/export,
POST /api/write and, when no base URL is configured, the file endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, configFile, err := a.loadConfig()
			if err != nil {
				return err
			}

			// Apply CLI overrides
			if dev {
				cfg.Server.Dev = true
			}
			if quiet {
				cfg.Logging.Quiet = true
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			a.warn(cfg)

			log, closeLog, err := logging.New(cfg.Logging, a.stdout, a.stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			srv, err := server.New(cfg, configFile, log, a.stdout)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			log.Info("starting", zap.String("version", Version), zap.String("commit", Commit))
			return srv.Run(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Override listen port")
	cmd.Flags().BoolVar(&dev, "dev", false, "Development mode (listen on localhost)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress request logs")
	return cmd
}
