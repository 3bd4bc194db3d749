package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guillermoBallester/sqlgate/internal/adapter/sqlite"
	"github.com/guillermoBallester/sqlgate/internal/core/domain"
	"github.com/guillermoBallester/sqlgate/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ port.QueryExecutor = (*sqlite.Executor)(nil)

const usersSetup = `
	CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT);
	INSERT INTO users (id, name, email) VALUES (1, 'Alice', 'alice@example.com');
	INSERT INTO users (id, name, email) VALUES (2, 'Bob', 'bob@example.com');
	INSERT INTO users (id, name, email) VALUES (3, 'Charlie', 'charlie@example.com');
`

func newExecutor(t *testing.T) *sqlite.Executor {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	e := sqlite.NewExecutor(db)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func seededExecutor(t *testing.T) *sqlite.Executor {
	t.Helper()
	e := newExecutor(t)
	require.NoError(t, e.RunSetup(context.Background(), usersSetup))
	return e
}

func cells(rs *domain.ResultSet) [][]any {
	out := make([][]any, len(rs.Rows))
	for i, row := range rs.Rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = v.Any()
		}
	}
	return out
}

func TestExecute_ReturnsAllRows(t *testing.T) {
	e := seededExecutor(t)

	rs, err := e.Execute(context.Background(), "SELECT id, name FROM users ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, 3, rs.RowCount)
	assert.False(t, rs.Truncated)
	assert.Equal(t, [][]any{
		{int64(1), "Alice"},
		{int64(2), "Bob"},
		{int64(3), "Charlie"},
	}, cells(rs))
}

func TestExecute_FiltersRows(t *testing.T) {
	e := seededExecutor(t)

	rs, err := e.Execute(context.Background(), "SELECT name FROM users WHERE id = 2")
	require.NoError(t, err)
	assert.Equal(t, 1, rs.RowCount)
	assert.Equal(t, [][]any{{"Bob"}}, cells(rs))
	assert.False(t, rs.Truncated)
}

func TestExecute_ColumnNames(t *testing.T) {
	e := seededExecutor(t)

	rs, err := e.Execute(context.Background(), "SELECT id, name, email FROM users LIMIT 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "email"}, rs.Columns)
}

func TestExecute_CTE(t *testing.T) {
	e := seededExecutor(t)

	rs, err := e.Execute(context.Background(), "WITH u AS (SELECT id FROM users WHERE id > 1) SELECT count(*) AS n FROM u;")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}}, cells(rs))
}

func TestExecute_NativeTypes(t *testing.T) {
	e := newExecutor(t)
	ctx := context.Background()
	require.NoError(t, e.RunSetup(ctx, `
		CREATE TABLE mixed (i INTEGER, r REAL, t TEXT, b BLOB, n TEXT, flag BOOLEAN);
		INSERT INTO mixed VALUES (7, 2.5, 'hi', X'0102', NULL, 1);
	`))

	rs, err := e.Execute(ctx, "SELECT i, r, t, b, n, flag FROM mixed")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)

	row := rs.Rows[0]
	assert.Equal(t, domain.KindInteger, row[0].Kind())
	assert.Equal(t, domain.KindReal, row[1].Kind())
	assert.Equal(t, domain.KindText, row[2].Kind())
	assert.Equal(t, "hi", row[2].Str())
	assert.Equal(t, domain.KindBinary, row[3].Kind())
	assert.Equal(t, []byte{0x01, 0x02}, row[3].Bytes())
	assert.True(t, row[4].IsNull())
	assert.Equal(t, domain.KindBoolean, row[5].Kind())
	assert.True(t, row[5].Bool())
}

func TestExecute_DateColumnsKeepStoredText(t *testing.T) {
	e := newExecutor(t)
	ctx := context.Background()
	require.NoError(t, e.RunSetup(ctx, `
		CREATE TABLE events (d DATE, dt DATETIME, ts TIMESTAMP, frac DATETIME);
		INSERT INTO events VALUES ('2024-01-02', '2024-01-02 03:04:05', '2024-12-31 23:59:59', '2024-01-02 03:04:05.25');
	`))

	rs, err := e.Execute(ctx, "SELECT d, dt, ts, frac FROM events")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)

	for _, v := range rs.Rows[0] {
		assert.Equal(t, domain.KindText, v.Kind())
	}
	assert.Equal(t, [][]any{{"2024-01-02", "2024-01-02 03:04:05", "2024-12-31 23:59:59", "2024-01-02 03:04:05.25"}}, cells(rs))
}

func TestRunSetup_CreatesTables(t *testing.T) {
	e := newExecutor(t)
	ctx := context.Background()

	require.NoError(t, e.RunSetup(ctx, "CREATE TABLE products (sku TEXT, price REAL);"))

	rs, err := e.Execute(ctx, "SELECT * FROM products")
	require.NoError(t, err)
	assert.Equal(t, []string{"sku", "price"}, rs.Columns)
	assert.Empty(t, rs.Rows)
	assert.NotNil(t, rs.Rows)
	assert.Equal(t, 0, rs.RowCount)
}

func TestRunSetup_Error(t *testing.T) {
	e := newExecutor(t)

	err := e.RunSetup(context.Background(), "CREATE TABLE broken (")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running setup script")
}

func seedBig(t *testing.T, e *sqlite.Executor, n int) {
	t.Helper()
	inserts := make([]string, n)
	for i := range n {
		inserts[i] = fmt.Sprintf("INSERT INTO big (val) VALUES (%d)", i)
	}
	script := "CREATE TABLE big (val INTEGER);\n" + strings.Join(inserts, ";\n") + ";"
	require.NoError(t, e.RunSetup(context.Background(), script))
}

func TestExecute_TruncatesBeyondCap(t *testing.T) {
	e := newExecutor(t)
	seedBig(t, e, 200)

	rs, err := e.Execute(context.Background(), "SELECT val FROM big ORDER BY val")
	require.NoError(t, err)
	assert.True(t, rs.Truncated)
	assert.Equal(t, domain.RowCap, rs.RowCount)
	assert.Len(t, rs.Rows, domain.RowCap)
	assert.Equal(t, int64(0), rs.Rows[0][0].Int())
	assert.Equal(t, int64(99), rs.Rows[99][0].Int())
}

func TestExecute_ExactlyCapNotTruncated(t *testing.T) {
	e := newExecutor(t)
	seedBig(t, e, domain.RowCap)

	rs, err := e.Execute(context.Background(), "SELECT val FROM big")
	require.NoError(t, err)
	assert.False(t, rs.Truncated)
	assert.Equal(t, domain.RowCap, rs.RowCount)
}

func TestExecute_EngineErrors(t *testing.T) {
	e := seededExecutor(t)

	tests := []struct {
		name     string
		sql      string
		contains string
	}{
		{"missing table", "SELECT * FROM missing", "no such table: missing"},
		{"missing column", "SELECT nope FROM users", "no such column: nope"},
		{"syntax", "SELECT FROM WHERE", "syntax error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Execute(context.Background(), tt.sql)
			require.Error(t, err)

			var execErr *domain.ExecutionError
			require.True(t, errors.As(err, &execErr))
			assert.Contains(t, execErr.Message, tt.contains)
		})
	}
}

func TestExecute_ContextCancelled(t *testing.T) {
	e := seededExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, "SELECT * FROM users")
	require.Error(t, err)
}

func TestOpen_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sqlite.Open(ctx, "sqlite://"+path)
	require.NoError(t, err)
	e := sqlite.NewExecutor(db)
	require.NoError(t, e.RunSetup(ctx, "CREATE TABLE t (id INTEGER); INSERT INTO t VALUES (1);"))
	require.NoError(t, e.Close())

	db, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	e = sqlite.NewExecutor(db)
	defer func() { _ = e.Close() }()

	rs, err := e.Execute(ctx, "SELECT id FROM t")
	require.NoError(t, err)
	assert.Equal(t, 1, rs.RowCount)
}

func TestEnableQueryOnly(t *testing.T) {
	e := seededExecutor(t)
	ctx := context.Background()

	require.NoError(t, e.EnableQueryOnly(ctx))

	// Execute bypasses validation, so the engine itself must refuse.
	_, err := e.Execute(ctx, "DELETE FROM users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "readonly")

	rs, err := e.Execute(ctx, "SELECT count(*) FROM users")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rs.Rows[0][0].Int())
}

func TestClose_Twice(t *testing.T) {
	db, err := sqlite.Open(context.Background(), "")
	require.NoError(t, err)
	e := sqlite.NewExecutor(db)

	require.NoError(t, e.Close())
	assert.NotPanics(t, func() { _ = e.Close() })
}
