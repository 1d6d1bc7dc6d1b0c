package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/speechkit/logger"
	"github.com/AltairaLabs/speechkit/metrics/prometheus"
)

const shutdownTimeout = 5 * time.Second

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve Prometheus metrics until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr, err := cmd.Flags().GetString("addr")
		if err != nil {
			return fmt.Errorf("failed to get addr flag: %w", err)
		}
		return serveMetrics(cmd.Context(), prometheus.NewExporter(addr))
	},
}

func init() {
	rootCmd.AddCommand(serveMetricsCmd)

	serveMetricsCmd.Flags().String("addr", ":9090", "Listen address for /metrics and /health")
}

// serveMetrics runs exp until ctx is done, then shuts it down.
func serveMetrics(ctx context.Context, exp *prometheus.Exporter) error {
	errCh := make(chan error, 1)
	go func() { errCh <- exp.Start() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics exporter failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down metrics exporter")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := exp.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
