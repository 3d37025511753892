package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT id, sku, name, price, category, stock, created_at
		FROM products
		WHERE id = ANY($1)
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.Category, &p.Stock, &p.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// DecrementStock lowers stock in a single guarded UPDATE so concurrent
// decrements of the same product never lose an update or go below zero.
func (r *productRepository) DecrementStock(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	query := `
		UPDATE products
		SET stock = stock - $1
		WHERE id = $2 AND stock >= $1
		RETURNING stock
	`

	var remaining int
	err := r.pool.QueryRow(ctx, query, qty, productID).Scan(&remaining)
	if err == nil {
		r.logger.Debug().
			Str("product_id", productID).
			Int("quantity", qty).
			Int("remaining", remaining).
			Msg("stock decremented")
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error().Err(err).Str("product_id", productID).Msg("failed to decrement stock")
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	// Nothing updated: tell a missing product apart from an exhausted one.
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		r.logger.Error().Err(err).Str("product_id", productID).Msg("failed to check product")
		return fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return model.ErrProductNotFound
	}

	r.logger.Warn().
		Str("product_id", productID).
		Int("quantity", qty).
		Msg("insufficient stock for decrement")
	return model.ErrInsufficientStock
}
