package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guillermoBallester/sqlgate/internal/adapter/mcp"
	"github.com/guillermoBallester/sqlgate/internal/audit"
	"github.com/guillermoBallester/sqlgate/internal/config"
	"github.com/guillermoBallester/sqlgate/internal/core/domain"
	"github.com/guillermoBallester/sqlgate/internal/core/port"
	"github.com/guillermoBallester/sqlgate/internal/core/service"
	"github.com/guillermoBallester/sqlgate/internal/telemetry"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "sqlgate"

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Read-only SQL query gateway for MCP clients",
		Long:          `sqlgate serves a validated, row-capped, read-only SQL query tool over the Model Context Protocol, backed by SQLite or PostgreSQL.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides, err := overridesFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return run(ctx, overrides)
		},
	}
	registerFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, overrides config.Overrides) error {
	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	logger.Info("starting sqlgate",
		slog.String("version", version),
		slog.String("database_url", redactDSN(cfg.DatabaseURL)),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.Bool("read_only", cfg.ReadOnly),
		slog.Int("row_cap", domain.RowCap),
		slog.String("query_timeout", cfg.QueryTimeout.String()),
		slog.String("transport", cfg.Transport),
		slog.Bool("explain_only", cfg.ExplainOnly),
	)

	// Telemetry
	tracer, inst, shutdownTelemetry, err := setupTelemetry(ctx, cfg, engineName(cfg.DatabaseURL), logger)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	// Adapters
	executor, err := bootstrapExecutor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = executor.Close() }()

	reg, err := bootstrapRegistry(cfg, logger)
	if err != nil {
		return err
	}

	var auditor port.QueryAuditor = port.NoopAuditor{}
	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer func() { _ = fa.Close() }()
		auditor = fa
		logger.Info("audit log enabled", slog.String("path", cfg.AuditLog))
	}

	if cfg.DryRun {
		logger.Info("dry run: configuration and bootstrap valid, exiting")
		return nil
	}

	// Services
	querySvc := service.NewQueryService(domain.NewQueryValidator(), executor, auditor, logger, tracer, inst, cfg.QueryTimeout)
	facade := service.NewFacade(querySvc, reg)

	// MCP server with tool handlers.
	mcpServer := mcp.NewServer(version, facade, logger, tracer, inst)

	switch cfg.Transport {
	case "http":
		return serveHTTP(ctx, cfg, mcpServer, logger)
	default:
		return serveStdio(ctx, mcpServer, logger)
	}
}

// newLogger writes JSON to stderr; stdout is reserved for the stdio transport.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func setupTelemetry(ctx context.Context, cfg *config.Config, engine string, logger *slog.Logger) (trace.Tracer, port.Instrumentation, func(), error) {
	if !cfg.OTelEnabled {
		return telemetry.NoopTracer(), telemetry.NoopInstruments(), func() {}, nil
	}

	provider, err := telemetry.Init(ctx, serviceName, version, engine)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	logger.Info("opentelemetry enabled")

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", slog.String("error.message", err.Error()))
		}
	}
	return otel.Tracer(serviceName), telemetry.NewInstruments(engine), shutdown, nil
}

func serveStdio(ctx context.Context, mcpServer *mcpserver.MCPServer, logger *slog.Logger) error {
	stdioServer := mcpserver.NewStdioServer(mcpServer)
	stdioServer.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	logger.Info("serving MCP over stdio")
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
