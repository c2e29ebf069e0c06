// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/roster/roster/internal/observability"
)

const (
	readinessTimeout = 2 * time.Second
	shutdownTimeout  = 5 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return newServeCmd(nil)
}

func newServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the metrics and health endpoints",
		Long: `Connect to the database and serve Prometheus metrics plus liveness and
readiness probes. Readiness follows the database connection.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, deps)
		},
	}
}

func runServe(cmd *cobra.Command, deps *Deps) error {
	deps = deps.withDefaults()

	a, err := openApp(cmd, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Metrics.Addr == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "metrics.addr").
			Errorf("serve requires a metrics address")
	}

	total, err := a.dir.Count(cmd.Context())
	if err != nil {
		return err
	}
	a.logger.Info("connected to database", "accounts", total)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	obsServer := deps.ObservabilityServerFactory(a.cfg.Metrics.Addr,
		observability.PingReadiness(a.pool, readinessTimeout))
	obsErrChan, err := obsServer.Start()
	if err != nil {
		return oops.Code("SERVER_START_FAILED").With("addr", a.cfg.Metrics.Addr).Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, obsErrChan, "observability")

	cmd.Println("Roster started")
	a.logger.Info("roster ready", "metrics_addr", obsServer.Addr())

	<-ctx.Done()
	a.logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := obsServer.Stop(shutdownCtx); err != nil {
		a.logger.Warn("error stopping observability server", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when the server reports an error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
