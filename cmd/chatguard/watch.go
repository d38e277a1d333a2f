package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/chatguard/internal/api"
	"github.com/Veraticus/chatguard/internal/availability"
	"github.com/Veraticus/chatguard/internal/cli"
	"github.com/Veraticus/chatguard/internal/config"
	"github.com/Veraticus/chatguard/internal/metrics"
)

const metricsShutdownTimeout = 5 * time.Second

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll backend availability and print every state change",
		Long: `Checks the service immediately and then on every poll interval until
interrupted. With --metrics-addr, Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			interval, err := config.PollInterval(viper.GetViper())
			if err != nil {
				return err
			}

			m := metrics.New()
			client, err := newClient(api.WithObserver(m))
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			ctx := cmd.Context()
			if addr := viper.GetString(config.KeyMetricsAddr); addr != "" {
				stop := serveMetrics(ctx, addr, m)
				defer stop()
			}

			poller := availability.New(client, availability.Config{
				Interval: interval,
				Logger:   slog.Default(),
			})
			updates, unsubscribe := poller.Subscribe(4)
			defer unsubscribe()

			if err := poller.Start(ctx); err != nil {
				return err
			}
			defer poller.Stop()

			return watchLoop(ctx, cmd.OutOrStdout(), updates, m)
		},
	}

	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	_ = viper.BindPFlag(config.KeyMetricsAddr, cmd.Flags().Lookup("metrics-addr"))
	return cmd
}

// watchLoop prints one status line per snapshot and mirrors it into m. It
// returns when ctx is done or the poller closes updates.
func watchLoop(ctx context.Context, out io.Writer, updates <-chan availability.Snapshot, m *metrics.Metrics) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			m.ObserveAvailability(snap)
			line := cli.FormatStatus(snap)
			if snap.Err != nil {
				line += " " + cli.SubtleStyle.Render(snap.Err.Error())
			}
			fmt.Fprintln(out, line)
		}
	}
}

// serveMetrics exposes m on addr/metrics until the returned stop is called.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Failed to stop metrics server", "error", err)
		}
	}
}
