package telemetry

import (
	"context"

	"github.com/guillermoBallester/sqlgate/internal/core/port"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/sqlgate"

var _ port.Instrumentation = (*Instruments)(nil)

// Instruments holds pre-created OTel metric instruments. Query metrics carry
// a db.system.name attribute naming the engine behind the executor.
type Instruments struct {
	QueryCount     metric.Int64Counter
	QueryDuration  metric.Float64Histogram
	QueryErrors    metric.Int64Counter
	QueryRejected  metric.Int64Counter
	QueryTruncated metric.Int64Counter
	ToolDuration   metric.Float64Histogram

	engine metric.MeasurementOption
}

// NewInstruments creates metric instruments from the global MeterProvider.
// If creation fails, noop instruments are used.
func NewInstruments(engine string) *Instruments {
	return NewInstrumentsFromMeter(otel.Meter(meterName), engine)
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return NewInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName), "")
}

func NewInstrumentsFromMeter(meter metric.Meter, engine string) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	queryCount, _ := meter.Int64Counter("sqlgate.query.count",
		metric.WithDescription("Total number of SQL queries executed successfully"),
	)
	queryDuration, _ := meter.Float64Histogram("sqlgate.query.duration",
		metric.WithDescription("SQL query execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	queryErrors, _ := meter.Int64Counter("sqlgate.query.errors",
		metric.WithDescription("Total number of accepted queries that failed in the engine"),
	)
	queryRejected, _ := meter.Int64Counter("sqlgate.query.rejected",
		metric.WithDescription("Total number of queries rejected by the validator"),
	)
	queryTruncated, _ := meter.Int64Counter("sqlgate.query.truncated",
		metric.WithDescription("Total number of results cut at the row cap"),
	)
	toolDuration, _ := meter.Float64Histogram("sqlgate.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		QueryCount:     queryCount,
		QueryDuration:  queryDuration,
		QueryErrors:    queryErrors,
		QueryRejected:  queryRejected,
		QueryTruncated: queryTruncated,
		ToolDuration:   toolDuration,
		engine:         metric.WithAttributes(EngineKey.String(engine)),
	}
}

func (i *Instruments) RecordQueryDuration(ctx context.Context, ms float64) {
	i.QueryDuration.Record(ctx, ms, i.engine)
}

func (i *Instruments) IncrementQueryCount(ctx context.Context) {
	i.QueryCount.Add(ctx, 1, i.engine)
}

func (i *Instruments) IncrementQueryErrors(ctx context.Context) {
	i.QueryErrors.Add(ctx, 1, i.engine)
}

func (i *Instruments) IncrementQueryRejected(ctx context.Context) {
	i.QueryRejected.Add(ctx, 1, i.engine)
}

func (i *Instruments) IncrementQueryTruncated(ctx context.Context) {
	i.QueryTruncated.Add(ctx, 1, i.engine)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
