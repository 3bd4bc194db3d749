package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/guillermoBallester/sqlgate/internal/adapter/postgres"
	"github.com/guillermoBallester/sqlgate/internal/adapter/registry"
	"github.com/guillermoBallester/sqlgate/internal/adapter/sqlite"
	"github.com/guillermoBallester/sqlgate/internal/config"
	"github.com/guillermoBallester/sqlgate/internal/core/port"
	"github.com/guillermoBallester/sqlgate/internal/core/service"
)

const (
	enginePostgres = "postgresql"
	engineSQLite   = "sqlite"
)

func engineName(databaseURL string) string {
	if postgres.IsURL(databaseURL) {
		return enginePostgres
	}
	return engineSQLite
}

// bootstrapExecutor opens the configured engine, runs the setup script and
// returns the executor stack the query service uses. The caller owns Close.
func bootstrapExecutor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (port.QueryExecutor, error) {
	var (
		base          port.QueryExecutor
		explainPrefix string
		lockDown      func(context.Context) error
	)

	switch engineName(cfg.DatabaseURL) {
	case enginePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolSettings{
			MaxConns:        cfg.PoolMaxConns,
			MinConns:        cfg.PoolMinConns,
			MaxConnLifetime: cfg.PoolMaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		base = postgres.NewExecutor(pool, cfg.ReadOnly, cfg.QueryTimeout)
		explainPrefix = service.ExplainPrefixPostgres
		logger.Info("database pool connected",
			slog.String("db.system.name", enginePostgres),
			slog.Int("pool.max_conns", int(cfg.PoolMaxConns)),
		)
	default:
		db, err := sqlite.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		exec := sqlite.NewExecutor(db)
		base = exec
		explainPrefix = service.ExplainPrefixSQLite
		if cfg.ReadOnly {
			lockDown = exec.EnableQueryOnly
		}
		logger.Info("database opened", slog.String("db.system.name", engineSQLite))
	}

	if cfg.SetupFile != "" {
		script, err := os.ReadFile(cfg.SetupFile)
		if err != nil {
			_ = base.Close()
			return nil, fmt.Errorf("reading setup file: %w", err)
		}
		if err := base.RunSetup(ctx, string(script)); err != nil {
			_ = base.Close()
			return nil, err
		}
		logger.Info("setup script applied", slog.String("file", cfg.SetupFile))
	}

	if lockDown != nil {
		if err := lockDown(ctx); err != nil {
			_ = base.Close()
			return nil, err
		}
	}

	// Core executors hold no locks; the HTTP transport calls concurrently.
	var executor port.QueryExecutor = service.NewSerialExecutor(base)
	if cfg.ExplainOnly {
		executor = service.NewExplainOnlyExecutor(executor, explainPrefix)
		logger.Info("explain-only mode enabled")
	}
	return executor, nil
}

func bootstrapRegistry(cfg *config.Config, logger *slog.Logger) (*registry.Registry, error) {
	reg := registry.New()
	if cfg.SchemaFile == "" {
		return reg, nil
	}
	n, err := registry.LoadFile(reg, cfg.SchemaFile)
	if err != nil {
		return nil, fmt.Errorf("loading schema file: %w", err)
	}
	logger.Info("schema registry loaded", slog.String("file", cfg.SchemaFile), slog.Int("tables", n))
	return reg, nil
}

// redactDSN masks the password of a postgres URL. sqlite paths carry no
// credentials and are returned unchanged.
func redactDSN(dsn string) string {
	if !postgres.IsURL(dsn) {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
