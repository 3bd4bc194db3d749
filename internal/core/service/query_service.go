package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/guillermoBallester/sqlgate/internal/core/domain"
	"github.com/guillermoBallester/sqlgate/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type toolNameKey struct{}

type requestIDKey struct{}

// WithToolName returns a context carrying the MCP tool name for audit logging.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

func toolNameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(toolNameKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID returns a context carrying the id used to correlate logs and audit lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// QueryService orchestrates SQL validation (domain) and execution (infrastructure).
type QueryService struct {
	validator port.QueryValidator
	executor  port.QueryExecutor
	auditor   port.QueryAuditor
	logger    *slog.Logger
	tracer    trace.Tracer
	inst      port.Instrumentation
	timeout   time.Duration // zero disables the per-query deadline
}

func NewQueryService(validator port.QueryValidator, executor port.QueryExecutor, auditor port.QueryAuditor, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation, timeout time.Duration) *QueryService {
	if auditor == nil {
		auditor = port.NoopAuditor{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &QueryService{
		validator: validator,
		executor:  executor,
		auditor:   auditor,
		logger:    logger,
		tracer:    tracer,
		inst:      inst,
		timeout:   timeout,
	}
}

// Validate exposes the validator verdict without executing anything.
func (s *QueryService) Validate(sql string) domain.ValidationOutcome {
	return s.validator.Validate(sql)
}

// Execute validates the SQL statement and, if allowed, delegates to the executor.
// Rejections return *domain.ValidationError and never reach the executor;
// engine failures return *domain.ExecutionError.
func (s *QueryService) Execute(ctx context.Context, sql string) (*domain.ResultSet, error) {
	ctx, span := s.tracer.Start(ctx, "QueryService.Execute",
		trace.WithAttributes(
			attribute.String("db.operation.name", "query"),
			attribute.String("db.statement", sql),
		),
	)
	defer span.End()

	outcome := s.validator.Validate(sql)
	if !outcome.Accepted {
		err := outcome.Err()
		s.logger.WarnContext(ctx, "query validation rejected",
			slog.String("request.id", RequestIDFromContext(ctx)),
			slog.String("db.operation.name", "query"),
			slog.String("db.statement", sql),
			slog.String("error.type", "validation_error"),
			slog.Any("reasons", outcome.Reasons),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryRejected(ctx)
		return nil, err
	}

	execCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.executor.Execute(execCtx, sql)
	durationMS := time.Since(start).Milliseconds()

	s.inst.RecordQueryDuration(ctx, float64(durationMS))

	if err != nil {
		var execErr *domain.ExecutionError
		if !errors.As(err, &execErr) {
			err = domain.NewExecutionError(err)
		}
	}

	entry := port.AuditEntry{
		RequestID:  RequestIDFromContext(ctx),
		Tool:       toolNameFromCtx(ctx),
		SQL:        sql,
		DurationMS: durationMS,
		Err:        err,
	}
	if result != nil {
		entry.RowsReturned = result.RowCount
		entry.Truncated = result.Truncated
	}
	s.auditor.Record(ctx, entry)

	if err != nil {
		s.logger.ErrorContext(ctx, "query execution failed",
			slog.String("request.id", entry.RequestID),
			slog.String("db.operation.name", "query"),
			slog.String("db.statement", sql),
			slog.String("error.type", "execution_error"),
			slog.String("error.message", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryErrors(ctx)
		return nil, err
	}

	s.inst.IncrementQueryCount(ctx)
	if result.Truncated {
		s.inst.IncrementQueryTruncated(ctx)
	}
	span.SetAttributes(
		attribute.Int("db.response.rows", result.RowCount),
		attribute.Bool("db.response.truncated", result.Truncated),
	)

	return result, nil
}
