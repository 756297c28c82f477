package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/dpshade/prompt-composer/internal/api"
	"github.com/dpshade/prompt-composer/internal/store"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the composer HTTP API",
	Long: `Start the composer HTTP API.

Each authenticated user gets their own store, opened on first request and
flushed on shutdown (Ctrl+C or SIGTERM).

The server provides:
  - /health          - Basic server health check
  - /metrics         - Prometheus metrics
  - /api/docs        - API documentation
  - /api/v1/...      - Templates, snippets, placeholders and types

Examples:
  composer serve                     # Start on the configured address
  composer serve --port 3000         # Start on a custom port
  composer serve --host 0.0.0.0      # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(false)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			a.cfg.Server.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			a.cfg.Server.Port = servePort
		}
		if err := a.cfg.Validate(); err != nil {
			return err
		}

		opts, err := a.storeOptions()
		if err != nil {
			return err
		}
		registry := store.NewRegistry(a.gw, a.log, opts)
		srv := api.NewAPIServer(registry, a.auth, a.log, verbose)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(a.cfg.Server.Addr())
		}()

		select {
		case err := <-errCh:
			registry.Close()
			return err
		case <-ctx.Done():
		}

		a.log.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")
}
