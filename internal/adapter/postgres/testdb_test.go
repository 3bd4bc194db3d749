package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testSchema = `
	CREATE TABLE customers (
		id         SERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT,
		balance    NUMERIC(10,2) NOT NULL DEFAULT 0,
		active     BOOLEAN NOT NULL DEFAULT true,
		external   UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	INSERT INTO customers (name, email, balance, external) VALUES
		('Alice', 'alice@example.com', 10.50, 'a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11'),
		('Bob', NULL, 0, NULL),
		('Charlie', 'charlie@example.com', 3.25, NULL);
`

// setupTestDB starts a disposable PostgreSQL and returns its URL and a pool
// seeded with testSchema.
func setupTestDB(t *testing.T) (string, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)

	return connStr, pool
}
