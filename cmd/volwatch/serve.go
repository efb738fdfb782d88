package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/volwatch/internal/logger"
	"github.com/rewired-gh/volwatch/internal/scheduler"
)

func serveCmd() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the weekly check on a schedule and expose /metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			r, err := newRunner(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer r.Close()

			job := func(ctx context.Context) error {
				_, err := r.check(ctx, "", lastMonday(time.Now()))
				return err
			}

			sched := scheduler.New(ctx)
			if err := sched.Register(cfg.Schedule.Cron, "weekly check", job); err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", r.metrics.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok\n"))
			})
			srv := &http.Server{
				Addr:              cfg.Metrics.ListenAddr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Serving metrics on %s", cfg.Metrics.ListenAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sched.Start()
			logger.Info("Next check at %s", sched.Next().Format(time.RFC3339))
			if runNow {
				go sched.RunNow("weekly check", job)
			}

			select {
			case <-ctx.Done():
			case err = <-errCh:
			}

			sched.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
				logger.Error("Failed to shut down metrics server: %v", shutdownErr)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "run one check immediately on start")
	return cmd
}
