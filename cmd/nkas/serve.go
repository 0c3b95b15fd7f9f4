package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/nkas/internal/session"
	"github.com/aretw0/nkas/internal/signals"
	"github.com/aretw0/nkas/internal/status"
	"github.com/aretw0/nkas/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Hold the profile and expose health and metrics to the supervisor",
	Long: `Keeps the session open, checks the device periodically and serves /healthz and /metrics.
SIGHUP reloads the configuration file. The command exits with code 3 when the device needs an operator.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sig := signals.New(cmd.Context())
		defer sig.Stop()
		ctx := sig.Context()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s, store, logger, closeFn, err := openSession(cmd, session.WithRegisterer(reg))
		if err != nil {
			return err
		}
		defer closeFn()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = store.Config().StatusAddr
		}
		tracker := status.NewTracker(s.Profile.Name, s.Profile.Serial, s.ID)
		srv := &http.Server{
			Addr:              addr,
			Handler:           status.NewHandler(tracker, reg, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("status server listening", "addr", addr)
			serverErrors <- srv.ListenAndServe()
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "error", err)
				_ = srv.Close()
			}
		}()

		check := func() error {
			running, err := s.Device.AppIsRunning(ctx)
			if ctx.Err() != nil {
				return nil
			}
			tracker.Report(err)
			if err != nil {
				logger.Warn("health check failed", "error", err)
				return err
			}
			logger.Debug("health check", "running", running)
			return nil
		}

		interval := s.Profile.HealthInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		if err := check(); errors.Is(err, domain.ErrHumanTakeover) {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				return nil
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("status server: %w", err)
			case <-sig.Reload():
				if err := store.Reload(); err != nil {
					logger.Error("configuration reload failed, keeping the previous profile", "error", err)
				}
			case <-ticker.C:
				if err := check(); errors.Is(err, domain.ErrHumanTakeover) {
					return err
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Status server address (default from status_addr)")
}
