package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// StockReconciler decrements inventory for the items of a confirmed order.
type StockReconciler struct {
	products repository.ProductRepository
	logger   zerolog.Logger
}

// NewStockReconciler creates a stock reconciler.
func NewStockReconciler(products repository.ProductRepository, logger zerolog.Logger) *StockReconciler {
	return &StockReconciler{
		products: products,
		logger:   logger.With().Str("service", "stock").Logger(),
	}
}

// Reconcile issues one atomic decrement per item that references a product.
// Every item is attempted; failures are logged and returned joined.
func (r *StockReconciler) Reconcile(ctx context.Context, orderNumber string, items []model.OrderItem) error {
	var errs []error

	for _, item := range items {
		if item.ProductID == nil || *item.ProductID == "" {
			continue
		}

		err := r.products.DecrementStock(ctx, *item.ProductID, item.Quantity)
		switch {
		case err == nil:
		case errors.Is(err, model.ErrInsufficientStock):
			r.logger.Warn().
				Str("order_number", orderNumber).
				Str("product_id", *item.ProductID).
				Int("quantity", item.Quantity).
				Msg("oversold: stock exhausted for confirmed order")
			errs = append(errs, fmt.Errorf("product %s: %w", *item.ProductID, err))
		default:
			r.logger.Error().
				Err(err).
				Str("order_number", orderNumber).
				Str("product_id", *item.ProductID).
				Msg("failed to decrement stock")
			errs = append(errs, fmt.Errorf("product %s: %w", *item.ProductID, err))
		}
	}

	return errors.Join(errs...)
}
