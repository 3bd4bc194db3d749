package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/guillermoBallester/sqlgate/internal/core/domain"
)

// Executor runs queries on a caller-owned *sql.DB. It holds no lock of its
// own; share one across goroutines only behind service.SerialExecutor.
type Executor struct {
	db *sql.DB
}

func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

func (e *Executor) Execute(ctx context.Context, query string) (*domain.ResultSet, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.NewExecutionError(err)
	}
	defer rows.Close()

	rs, err := collect(rows)
	if err != nil {
		return nil, domain.NewExecutionError(err)
	}
	return rs, nil
}

// RunSetup executes a multi-statement script. go-sqlite3 runs every
// statement in the text when Exec is called without arguments.
func (e *Executor) RunSetup(ctx context.Context, script string) error {
	if _, err := e.db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("running setup script: %w", err)
	}
	return nil
}

// EnableQueryOnly makes the connection refuse writes. The pool holds a single
// connection, so the pragma covers every later query.
func (e *Executor) EnableQueryOnly(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return fmt.Errorf("enabling query_only: %w", err)
	}
	return nil
}

func (e *Executor) Close() error {
	return e.db.Close()
}

// Layouts SQLite itself writes for date and time text.
const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05.999999999"
)

// columnKind is the part of a declared column type that changes how a
// scanned cell is turned back into a value.
type columnKind int

const (
	kindOther columnKind = iota
	kindText
	kindDate
	kindDatetime
)

// collect reads rows into a capped ResultSet, stopping one row past the cap.
func collect(rows *sql.Rows) (*domain.ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	kinds := columnKinds(rows, len(columns))

	c := domain.NewRowCollector(columns)
	vals := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for !c.Full() && rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("reading row values: %w", err)
		}
		row := make([]domain.Value, len(vals))
		for i, v := range vals {
			row[i] = cellValue(v, kinds[i])
		}
		c.Add(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return c.Result(), nil
}

// cellValue undoes the driver's conversions: go-sqlite3 hands TEXT columns
// back as []byte and parses DATE, DATETIME and TIMESTAMP columns into
// time.Time. Both are returned as the text SQLite stores.
func cellValue(v any, kind columnKind) domain.Value {
	switch x := v.(type) {
	case []byte:
		if kind == kindText {
			return domain.Text(string(x))
		}
	case time.Time:
		switch kind {
		case kindDate:
			return domain.Text(x.Format(dateLayout))
		case kindDatetime:
			return domain.Text(x.Format(datetimeLayout))
		}
	}
	return domain.ValueOf(v)
}

// columnKinds classifies each column by its declared type.
func columnKinds(rows *sql.Rows, n int) []columnKind {
	kinds := make([]columnKind, n)
	types, err := rows.ColumnTypes()
	if err != nil {
		return kinds
	}
	for i, ct := range types {
		if i >= n {
			break
		}
		kinds[i] = declaredKind(ct.DatabaseTypeName())
	}
	return kinds
}

func declaredKind(decl string) columnKind {
	decl = strings.ToUpper(decl)
	switch {
	case decl == "DATE":
		return kindDate
	case decl == "DATETIME" || decl == "TIMESTAMP":
		return kindDatetime
	case strings.Contains(decl, "CHAR") || strings.Contains(decl, "CLOB") || strings.Contains(decl, "TEXT"):
		return kindText
	}
	return kindOther
}
