//go:build integration

// Package containers starts throwaway backing services for integration tests.
package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"lofo/internal/platform/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// schema migrated.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	DSN       string
}

// NewPostgresContainer starts PostgreSQL, applies migrations, and registers
// cleanup on the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("lofo_test"),
		tcpostgres.WithUsername("lofo"),
		tcpostgres.WithPassword("lofo"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	return &PostgresContainer{Container: container, DB: db, DSN: dsn}
}

// Truncate empties the given tables between tests.
func (c *PostgresContainer) Truncate(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := c.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", ")))
	return err
}
