package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, order_number, conversation_id, customer, shipping_address, billing_address,
	subtotal, shipping_cost, tax_amount, discount_amount, total, currency, coupon_code,
	status, payment_status, failure_reason, payment_id, payment_transactions,
	installment, paid_at, created_at, updated_at`

// dbExecer is satisfied by both the pool and a transaction.
type dbExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, order_number, conversation_id, customer, shipping_address, billing_address,
			subtotal, shipping_cost, tax_amount, discount_amount, total, currency, coupon_code,
			status, payment_status, installment, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.OrderNumber,
		order.ConversationID,
		order.Customer,
		order.ShippingAddress,
		order.BillingAddress,
		order.Subtotal,
		order.ShippingCost,
		order.TaxAmount,
		order.DiscountAmount,
		order.Total,
		order.Currency,
		order.CouponCode,
		order.Status,
		order.PaymentStatus,
		order.Installment,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("order_number", order.OrderNumber).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (
			id, order_id, product_id, product_name, variant_name, sku, category,
			quantity, unit_price, total_price
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID, item.OrderID, item.ProductID, item.ProductName, item.VariantName,
			item.SKU, item.Category, item.Quantity, item.UnitPrice, item.TotalPrice,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_name", items[i].ProductName).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByConversationID retrieves an order and its items by conversation ID.
func (r *orderRepository) GetByConversationID(ctx context.Context, conversationID string) (*model.Order, []model.OrderItem, error) {
	return r.getOrder(ctx, "conversation_id", conversationID)
}

// GetByOrderNumber retrieves an order and its items by order number.
func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, []model.OrderItem, error) {
	return r.getOrder(ctx, "order_number", orderNumber)
}

// getOrder loads one order by a unique text column. column is never user input.
func (r *orderRepository) getOrder(ctx context.Context, column, value string) (*model.Order, []model.OrderItem, error) {
	orderQuery := `SELECT ` + orderColumns + ` FROM orders WHERE ` + column + ` = $1`

	var order model.Order
	err := r.pool.QueryRow(ctx, orderQuery, value).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.ConversationID,
		&order.Customer,
		&order.ShippingAddress,
		&order.BillingAddress,
		&order.Subtotal,
		&order.ShippingCost,
		&order.TaxAmount,
		&order.DiscountAmount,
		&order.Total,
		&order.Currency,
		&order.CouponCode,
		&order.Status,
		&order.PaymentStatus,
		&order.FailureReason,
		&order.PaymentID,
		&order.PaymentTransactions,
		&order.Installment,
		&order.PaidAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str(column, value).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str(column, value).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, product_name, variant_name, sku, category,
			quantity, unit_price, total_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_name, id
	`

	rows, err := r.pool.Query(ctx, itemsQuery, order.ID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to query order items")
		return nil, nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.VariantName,
			&item.SKU, &item.Category, &item.Quantity, &item.UnitPrice, &item.TotalPrice,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return &order, items, nil
}

// ClaimForReconciliation stamps the claim column on a pending, unclaimed order.
func (r *orderRepository) ClaimForReconciliation(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET reconcile_claimed_at = NOW(), updated_at = NOW()
		WHERE id = $1
			AND status = $2
			AND payment_status = $3
			AND reconcile_claimed_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id, model.OrderStatusPending, model.PaymentStatusPending)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to claim order")
		return false, fmt.Errorf("failed to claim order: %w", err)
	}

	claimed := tag.RowsAffected() == 1
	if !claimed {
		r.logger.Debug().Str("order_id", id.String()).Msg("order already claimed or settled")
	}
	return claimed, nil
}

// TransitionStatus performs a compare-and-swap on the status pair.
func (r *orderRepository) TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from model.OrderState, change model.StatusChange) error {
	query := `
		UPDATE orders
		SET status = $4,
			payment_status = $5,
			failure_reason = COALESCE($6, failure_reason),
			payment_id = COALESCE($7, payment_id),
			payment_transactions = COALESCE($8::jsonb, payment_transactions),
			installment = COALESCE($9, installment),
			paid_at = COALESCE($10, paid_at),
			updated_at = NOW()
		WHERE id = $1 AND status = $2 AND payment_status = $3
	`

	var (
		paymentID    *string
		transactions any
		installment  *int
		paidAt       any
	)
	if p := change.Payment; p != nil {
		paymentID = &p.PaymentID
		transactions = p.Transactions
		if p.Transactions == nil {
			transactions = []model.PaymentTransaction{}
		}
		installment = &p.Installment
		paidAt = p.PaidAt
	}

	var db dbExecer = r.pool
	if tx != nil {
		db = tx
	}

	tag, err := db.Exec(ctx, query,
		id, from.Status, from.PaymentStatus,
		change.To.Status, change.To.PaymentStatus,
		change.FailureReason, paymentID, transactions, installment, paidAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Stringer("from", from).
			Stringer("to", change.To).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Warn().
			Str("order_id", id.String()).
			Stringer("from", from).
			Stringer("to", change.To).
			Msg("order status precondition not met")
		return model.ErrStatusConflict
	}

	r.logger.Info().
		Str("order_id", id.String()).
		Stringer("from", from).
		Stringer("to", change.To).
		Msg("order status updated")

	return nil
}

// MarkTransactionRefunded flags one stored payment transaction as refunded so
// a repeated cancellation skips it.
func (r *orderRepository) MarkTransactionRefunded(ctx context.Context, id uuid.UUID, transactionID string) error {
	query := `
		UPDATE orders
		SET payment_transactions = (
				SELECT COALESCE(jsonb_agg(
					CASE WHEN t->>'transactionId' = $2
						THEN t || '{"refunded": true}'::jsonb
						ELSE t
					END ORDER BY pos), '[]'::jsonb)
				FROM jsonb_array_elements(payment_transactions) WITH ORDINALITY AS e(t, pos)
			),
			updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, transactionID); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("transaction_id", transactionID).
			Msg("failed to record refund")
		return fmt.Errorf("failed to record refund: %w", err)
	}
	return nil
}
