package service

import (
	"context"
	"sync"

	"github.com/guillermoBallester/sqlgate/internal/core/domain"
	"github.com/guillermoBallester/sqlgate/internal/core/port"
)

// SerialExecutor lets concurrent callers share one executor by running
// Execute and RunSetup one at a time.
type SerialExecutor struct {
	mu    sync.Mutex
	inner port.QueryExecutor
}

func NewSerialExecutor(inner port.QueryExecutor) *SerialExecutor {
	return &SerialExecutor{inner: inner}
}

func (e *SerialExecutor) Execute(ctx context.Context, sql string) (*domain.ResultSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inner.Execute(ctx, sql)
}

func (e *SerialExecutor) RunSetup(ctx context.Context, script string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inner.RunSetup(ctx, script)
}

func (e *SerialExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inner.Close()
}
