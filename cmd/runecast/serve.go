package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/amutnick/Runecast"
	"github.com/amutnick/Runecast/internal/cli"
	runehttp "github.com/amutnick/Runecast/pkg/adapters/http"
	"github.com/amutnick/Runecast/pkg/history"
	"github.com/amutnick/Runecast/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the Runecast HTTP API: reading sessions with live SSE updates, the
journal, stats, analysis and retention settings. When history.prune_interval
is set, retention is also applied on that schedule while the server runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := observability.NewMetrics(reg)

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		addr := e.cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		cfg := runehttp.Config{
			Catalog:        e.app.Catalog(),
			Interpreter:    e.app.Interpreter(),
			History:        e.app.History(),
			Hooks:          observability.Combine(metrics.Hooks(), observability.LoggingHooks(e.logger)),
			MachineOptions: e.app.SessionOptions(),
			Logger:         e.logger,
			Version:        runecast.Version,
		}
		if e.cfg.Server.Metrics {
			cfg.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		}
		handler, err := runehttp.NewHandler(cfg)
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		g, ctx := errgroup.WithContext(sigCtx)
		g.Go(func() error {
			e.logger.Info("Starting Runecast server", "address", addr, "store", e.cfg.Store.Backend)
			fmt.Fprintf(cmd.OutOrStdout(), "Runecast listening on %s\n", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		if interval := e.cfg.History.PruneInterval; interval > 0 {
			g.Go(func() error {
				return pruneLoop(ctx, e.app.History(), interval, e)
			})
		}
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				e.logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			return nil
		})

		err = g.Wait()
		if sig := sigCtx.Signal(); sig != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Runecast server stopped (%v)\n", sig)
		}
		return err
	},
}

// pruneLoop applies retention every interval until ctx is done. Failures
// are logged and retried on the next tick.
func pruneLoop(ctx context.Context, h *history.Service, interval time.Duration, e *env) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := h.AutoPrune(ctx); err != nil && ctx.Err() == nil {
				e.logger.Warn("Scheduled prune failed", "err", err)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on (default from config)")
}
