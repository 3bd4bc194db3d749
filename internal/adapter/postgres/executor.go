package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/guillermoBallester/sqlgate/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Executor struct {
	pool         *pgxpool.Pool
	readOnly     bool
	queryTimeout time.Duration
	closeOnce    sync.Once
}

func NewExecutor(pool *pgxpool.Pool, readOnly bool, queryTimeout time.Duration) *Executor {
	return &Executor{
		pool:         pool,
		readOnly:     readOnly,
		queryTimeout: queryTimeout,
	}
}

func (e *Executor) Execute(ctx context.Context, sql string) (*domain.ResultSet, error) {
	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{
		AccessMode: e.accessMode(),
	})
	if err != nil {
		return nil, domain.NewExecutionError(fmt.Errorf("beginning transaction: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// statement_timeout lets PostgreSQL cancel server-side even if the
	// client goes away. SET LOCAL scopes it to this transaction.
	if ms := e.queryTimeout.Milliseconds(); ms > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%d'", ms)); err != nil {
			return nil, domain.NewExecutionError(fmt.Errorf("setting statement timeout: %w", err))
		}
	}

	rows, err := tx.Query(ctx, wrapQuery(sql))
	if err != nil {
		return nil, domain.NewExecutionError(err)
	}
	rs, err := collect(rows)
	rows.Close()
	if err != nil {
		return nil, domain.NewExecutionError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.NewExecutionError(fmt.Errorf("committing transaction: %w", err))
	}

	return rs, nil
}

// RunSetup runs a multi-statement script outside of any read-only
// transaction. The simple protocol is used when no arguments are passed.
func (e *Executor) RunSetup(ctx context.Context, script string) error {
	if _, err := e.pool.Exec(ctx, script); err != nil {
		return fmt.Errorf("running setup script: %w", err)
	}
	return nil
}

func (e *Executor) Close() error {
	e.closeOnce.Do(e.pool.Close)
	return nil
}

// wrapQuery bounds the engine to RowCap+1 rows so truncation is still
// detectable. EXPLAIN statements cannot be wrapped in a subquery. The closing
// paren goes on its own line so a trailing line comment cannot swallow it.
func wrapQuery(sql string) string {
	if isExplain(sql) {
		return sql
	}
	body := strings.TrimSuffix(strings.TrimRightFunc(sql, unicode.IsSpace), ";")
	return fmt.Sprintf("SELECT * FROM (%s\n) AS _q LIMIT %d", body, domain.RowCap+1)
}

func isExplain(sql string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "EXPLAIN")
}

func (e *Executor) accessMode() pgx.TxAccessMode {
	if e.readOnly {
		return pgx.ReadOnly
	}
	return pgx.ReadWrite
}
