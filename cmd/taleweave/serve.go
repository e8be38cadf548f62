package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/aretw0/taleweave/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP Turn API",
	Long: `Starts the Turn API over HTTP together with the character, world book and
regex resources. Prometheus metrics are served on a separate port.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("metrics-port") {
			cfg.Server.MetricsPort, _ = cmd.Flags().GetInt("metrics-port")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		handler := api.NewHandler(a.Engine,
			api.WithLogger(logger),
			api.WithEngineServices(a.Engine),
		)
		servers := []*http.Server{{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: handler,
		}}
		if cfg.Server.MetricsPort > 0 {
			mux := http.NewServeMux()
			mux.Handle("/metrics", a.Metrics.Handler())
			servers = append(servers, &http.Server{
				Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
				Handler: mux,
			})
		}

		// Channel to listen for errors coming from the listeners.
		serverErrors := make(chan error, len(servers))
		for _, srv := range servers {
			go func(srv *http.Server) {
				logger.Info("listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErrors <- err
				}
			}(srv)
		}

		select {
		case err := <-serverErrors:
			shutdown(servers)
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdown(servers)
			logger.Info("taleweave server stopped gracefully")
			return nil
		}
	},
}

func shutdown(servers []*http.Server) {
	// Give outstanding requests a deadline for completion.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown did not complete", "addr", srv.Addr, "err", err)
			_ = srv.Close()
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port for the Turn API")
	serveCmd.Flags().Int("metrics-port", 9090, "Port for /metrics (0 disables)")
}
