package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	forkjoin "github.com/vhlavac/forkjoin"
	"github.com/vhlavac/forkjoin/logs"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a scheduler that idles while exposing /metrics over HTTP",
	RunE: func(c *cobra.Command, args []string) error {
		registry := prometheus.NewRegistry()
		s := forkjoin.New(context.Background(), workers, initialPools,
			forkjoin.WithMetricsRegisterer(registry))
		defer func() {
			s.Terminate()
			_ = s.WaitForTermination()
		}()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		server := &http.Server{Addr: serveAddr, Handler: mux}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logs.Info(ctx, "serving metrics", "addr", serveAddr)
			errCh <- server.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			logs.Info(context.Background(), "shutting down")
			return server.Shutdown(context.Background())
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9090", "listen address for /metrics")
}
