package service

import (
	"context"
	"strings"

	"github.com/guillermoBallester/sqlgate/internal/core/domain"
	"github.com/guillermoBallester/sqlgate/internal/core/port"
)

// Engine-specific plan prefixes for ExplainOnlyExecutor.
const (
	ExplainPrefixSQLite   = "EXPLAIN QUERY PLAN "
	ExplainPrefixPostgres = "EXPLAIN "
)

// ExplainOnlyExecutor wraps a QueryExecutor and forces all queries through EXPLAIN.
// Queries that already start with EXPLAIN are passed through unchanged.
type ExplainOnlyExecutor struct {
	inner  port.QueryExecutor
	prefix string
}

func NewExplainOnlyExecutor(inner port.QueryExecutor, prefix string) *ExplainOnlyExecutor {
	return &ExplainOnlyExecutor{inner: inner, prefix: prefix}
}

func (e *ExplainOnlyExecutor) Execute(ctx context.Context, sql string) (*domain.ResultSet, error) {
	if !isExplain(sql) {
		sql = e.prefix + sql
	}
	return e.inner.Execute(ctx, sql)
}

func (e *ExplainOnlyExecutor) RunSetup(ctx context.Context, script string) error {
	return e.inner.RunSetup(ctx, script)
}

func (e *ExplainOnlyExecutor) Close() error {
	return e.inner.Close()
}

func isExplain(sql string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "EXPLAIN")
}
