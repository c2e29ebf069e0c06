// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/roster/roster/internal/account"
	"github.com/roster/roster/internal/account/postgres"
	"github.com/roster/roster/internal/config"
	"github.com/roster/roster/internal/observability"
	"github.com/roster/roster/internal/store"
)

// Deps contains injectable dependencies for commands that touch the database.
// All fields with nil values will use their default implementations.
type Deps struct {
	// PoolOpener opens the database pool.
	// Default: store.Open
	PoolOpener func(ctx context.Context, dsn string, cfg store.PoolConfig, logger *slog.Logger) (*pgxpool.Pool, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer serving the account metrics
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.PoolOpener == nil {
		out.PoolOpener = store.Open
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker,
				observability.WithCollectors(account.Collectors()...),
				observability.WithLogger(slog.Default()))
		}
	}
	return &out
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// app bundles what the account commands need.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	dir    *account.Directory
}

// openApp loads configuration, connects to the database and builds the
// account directory.
func openApp(cmd *cobra.Command, deps *Deps) (*app, error) {
	deps = deps.withDefaults()

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if cfg.Database.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
		defer cancel()
	}

	pool, err := deps.PoolOpener(ctx, cfg.Database.URL, store.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	}, logger)
	if err != nil {
		return nil, err
	}

	dir, err := newDirectory(cfg, logger, postgres.NewStore(pool))
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, pool: pool, dir: dir}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

func newDirectory(cfg *config.Config, logger *slog.Logger, s account.Store) (*account.Directory, error) {
	notifier, err := account.NewLogNotifier(logger, cfg.Notify.VerifyURL)
	if err != nil {
		return nil, oops.Code(config.CodeInvalid).With("field", "notify.verify_url").Wrap(err)
	}
	return account.NewDirectory(s,
		account.NewArgon2idHasher(cfg.Auth.Argon2.Params()),
		notifier,
		account.Config{MaxLoginAttempts: cfg.Auth.MaxLoginAttempts},
		account.WithLogger(logger),
	)
}
