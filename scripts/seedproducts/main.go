// Command seedproducts applies migrations and upserts a small catalogue so a
// checkout can be exercised locally.
package main

import (
	"context"
	"fmt"
	"os"

	"storefront/internal/config"
	"storefront/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type product struct {
	id, sku, name, category string
	price                   string
	stock                   int
}

var catalogue = []product{
	{id: "P001", sku: "MUG-BLU", name: "Ceramic Mug", category: "Kitchen", price: "25.00", stock: 120},
	{id: "P002", sku: "TEE-BLK-M", name: "Cotton T-Shirt", category: "Apparel", price: "149.90", stock: 40},
	{id: "P003", sku: "NB-A5", name: "A5 Notebook", category: "Stationery", price: "39.50", stock: 300},
	{id: "P004", sku: "LAMP-DSK", name: "Desk Lamp", category: "Home", price: "489.00", stock: 8},
}

func main() {
	_ = godotenv.Load()

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	logger := config.NewLogger(config.LoggerConfig{Level: "info", Format: "console"})

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		db := config.DatabaseConfig{
			Host:     envOr("DB_HOST", "localhost"),
			Port:     5432,
			User:     envOr("DB_USER", "postgres"),
			Password: envOr("DB_PASSWORD", "postgres"),
			Database: envOr("DB_NAME", "storefront"),
		}
		connString = db.ConnectionString()
	}

	pool, err := database.Open(ctx, connString, database.DefaultPoolOptions())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, p := range catalogue {
		batch.Queue(`
			INSERT INTO products (id, sku, name, price, category, stock)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET sku = EXCLUDED.sku, name = EXCLUDED.name, price = EXCLUDED.price,
			    category = EXCLUDED.category, stock = EXCLUDED.stock`,
			p.id, p.sku, p.name, decimal.RequireFromString(p.price), p.category, p.stock)
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	logger.Info().Int("count", len(catalogue)).Msg("products seeded")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
