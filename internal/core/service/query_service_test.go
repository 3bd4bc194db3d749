package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/guillermoBallester/sqlgate/internal/core/domain"
	"github.com/guillermoBallester/sqlgate/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- mock QueryExecutor ---

type mockExecutor struct {
	calls    int
	lastSQL  string
	setupSQL string
	result   *domain.ResultSet
	err      error
	deadline bool
	closed   bool
}

func (m *mockExecutor) Execute(ctx context.Context, sql string) (*domain.ResultSet, error) {
	m.calls++
	m.lastSQL = sql
	_, m.deadline = ctx.Deadline()
	return m.result, m.err
}

func (m *mockExecutor) RunSetup(_ context.Context, script string) error {
	m.setupSQL = script
	return nil
}

func (m *mockExecutor) Close() error {
	m.closed = true
	return nil
}

// --- recording auditor and instrumentation ---

type recordingAuditor struct {
	mu      sync.Mutex
	entries []port.AuditEntry
}

func (a *recordingAuditor) Record(_ context.Context, e port.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) Close() error { return nil }

type countingInstrumentation struct {
	port.NoopInstrumentation
	queries, rejected, errors, truncated int
}

func (c *countingInstrumentation) IncrementQueryCount(context.Context)     { c.queries++ }
func (c *countingInstrumentation) IncrementQueryRejected(context.Context)  { c.rejected++ }
func (c *countingInstrumentation) IncrementQueryErrors(context.Context)    { c.errors++ }
func (c *countingInstrumentation) IncrementQueryTruncated(context.Context) { c.truncated++ }

func newService(exec *mockExecutor) *QueryService {
	return NewQueryService(domain.NewQueryValidator(), exec, port.NoopAuditor{}, testLogger(), nil, nil, 0)
}

func oneRow() *domain.ResultSet {
	return &domain.ResultSet{
		Columns:  []string{"id", "name"},
		Rows:     [][]domain.Value{{domain.Integer(1), domain.Text("alice")}},
		RowCount: 1,
	}
}

// --- tests ---

func TestQueryService_ValidSelect(t *testing.T) {
	exec := &mockExecutor{result: oneRow()}
	svc := newService(exec)

	rs, err := svc.Execute(context.Background(), "SELECT id, name FROM users")
	require.NoError(t, err)
	assert.Equal(t, 1, exec.calls)
	assert.Equal(t, "SELECT id, name FROM users", exec.lastSQL)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, "alice", rs.Rows[0][1].Str())
}

func TestQueryService_RejectedNeverReachesExecutor(t *testing.T) {
	for _, sql := range []string{
		"",
		"INSERT INTO users (name) VALUES ('bob')",
		"DROP TABLE users",
		"DELETE FROM users WHERE id = 1",
		"UPDATE users SET name = 'x'",
		"SELECT 1; SELECT 2",
	} {
		t.Run(sql, func(t *testing.T) {
			exec := &mockExecutor{}
			svc := newService(exec)

			_, err := svc.Execute(context.Background(), sql)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrRejected))
			assert.Equal(t, 0, exec.calls, "executor should not be called for rejected queries")
		})
	}
}

func TestQueryService_ExecutorError(t *testing.T) {
	exec := &mockExecutor{err: fmt.Errorf("no such table: missing")}
	svc := newService(exec)

	_, err := svc.Execute(context.Background(), "SELECT * FROM missing")
	require.Error(t, err)

	var execErr *domain.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "no such table: missing", execErr.Message)
}

func TestQueryService_AppliesTimeout(t *testing.T) {
	exec := &mockExecutor{result: oneRow()}
	svc := NewQueryService(domain.NewQueryValidator(), exec, nil, testLogger(), nil, nil, 5*time.Second)

	_, err := svc.Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.True(t, exec.deadline)

	exec = &mockExecutor{result: oneRow()}
	_, err = newService(exec).Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.False(t, exec.deadline)
}

func TestQueryService_AuditAndMetrics(t *testing.T) {
	auditor := &recordingAuditor{}
	inst := &countingInstrumentation{}
	truncated := oneRow()
	truncated.Truncated = true
	exec := &mockExecutor{result: truncated}
	svc := NewQueryService(domain.NewQueryValidator(), exec, auditor, testLogger(), nil, inst, 0)

	ctx := WithRequestID(WithToolName(context.Background(), "run_query"), "req-1")
	_, err := svc.Execute(ctx, "SELECT id, name FROM users")
	require.NoError(t, err)

	_, err = svc.Execute(ctx, "DROP TABLE users")
	require.Error(t, err)

	exec.err = errors.New("boom")
	_, err = svc.Execute(ctx, "SELECT 1")
	require.Error(t, err)

	require.Len(t, auditor.entries, 2, "rejections are not audited")
	assert.Equal(t, "req-1", auditor.entries[0].RequestID)
	assert.Equal(t, "run_query", auditor.entries[0].Tool)
	assert.Equal(t, 1, auditor.entries[0].RowsReturned)
	assert.True(t, auditor.entries[0].Truncated)
	assert.NoError(t, auditor.entries[0].Err)
	assert.EqualError(t, auditor.entries[1].Err, "boom")

	assert.Equal(t, 1, inst.queries)
	assert.Equal(t, 1, inst.rejected)
	assert.Equal(t, 1, inst.errors)
	assert.Equal(t, 1, inst.truncated)
}

func TestQueryService_SpanOnRejection(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	svc := NewQueryService(domain.NewQueryValidator(), &mockExecutor{}, nil, testLogger(), tp.Tracer("test"), nil, 0)
	_, err := svc.Execute(context.Background(), "DROP TABLE users")
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "QueryService.Execute", spans[0].Name)
	assert.Equal(t, "Error", spans[0].Status.Code.String())
}
