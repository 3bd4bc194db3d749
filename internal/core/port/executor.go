package port

import (
	"context"

	"github.com/guillermoBallester/sqlgate/internal/core/domain"
)

// QueryExecutor runs already-validated SQL against an engine.
// Implementations are not safe for concurrent use unless documented otherwise.
type QueryExecutor interface {
	// Execute runs a query and returns at most domain.RowCap rows.
	// Engine failures are returned as *domain.ExecutionError.
	Execute(ctx context.Context, sql string) (*domain.ResultSet, error)

	// RunSetup runs an administrative script of one or more statements.
	// It bypasses validation and must never be reachable from a tool call.
	RunSetup(ctx context.Context, script string) error

	Close() error
}
