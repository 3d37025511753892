// Package dbtest starts throwaway PostgreSQL containers for tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"storefront/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB is a migrated database running in a container.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// Start launches PostgreSQL, applies the migrations and registers cleanup.
// Tests calling it are skipped under -short.
func Start(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := database.Open(ctx, connStr, database.DefaultPoolOptions())
	if err != nil {
		t.Fatalf("failed to open pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{Container: container, Pool: pool, ConnStr: connStr}
}

// SeedProduct inserts a catalogue row.
func (db *TestDB) SeedProduct(t *testing.T, id, name, price string, stock int) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO products (id, sku, name, price, category, stock) VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
		id, "SKU-"+id, name, price, "General", stock,
	)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", id, err)
	}
}

// Truncate empties every application table.
func (db *TestDB) Truncate(t *testing.T) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(), `TRUNCATE order_events, order_items, orders, products`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}
