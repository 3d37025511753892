package repository

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for catalogue data access used by checkout.
type ProductRepository interface {
	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// DecrementStock atomically lowers a product's stock by qty.
	// Returns model.ErrInsufficientStock when the product has fewer than qty units
	// left, and model.ErrProductNotFound when the product does not exist.
	DecrementStock(ctx context.Context, productID string, qty int) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByConversationID retrieves an order and its items by the payment
	// correlation ID. Returns nil without error when no order matches.
	GetByConversationID(ctx context.Context, conversationID string) (*model.Order, []model.OrderItem, error)

	// GetByOrderNumber retrieves an order and its items by its human order number.
	// Returns nil without error when no order matches.
	GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, []model.OrderItem, error)

	// ClaimForReconciliation marks a pending order as being reconciled.
	// Only the first caller gets true.
	ClaimForReconciliation(ctx context.Context, id uuid.UUID) (bool, error)

	// TransitionStatus moves an order from one state to another, but only if it is
	// still in the expected state. Returns model.ErrStatusConflict otherwise.
	// A nil tx runs the update outside any transaction.
	TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from model.OrderState, change model.StatusChange) error

	// MarkTransactionRefunded flags one of the order's payment transactions as refunded.
	MarkTransactionRefunded(ctx context.Context, id uuid.UUID, transactionID string) error
}

// OutboxRepository stores order events for asynchronous delivery.
type OutboxRepository interface {
	// Enqueue records an event within the provided transaction.
	Enqueue(ctx context.Context, tx pgx.Tx, event *model.OrderEvent) error

	// ClaimPending locks up to limit pending events that are due for the life
	// of tx. Rows locked by other workers are skipped.
	ClaimPending(ctx context.Context, tx pgx.Tx, limit int) ([]model.OrderEvent, error)

	// MarkSent records a successful delivery.
	MarkSent(ctx context.Context, tx pgx.Tx, id uuid.UUID) error

	// MarkFailed records a failed attempt and defers the next one by retryAfter.
	// The event is parked once attempts reach maxAttempts.
	MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, maxAttempts int, retryAfter time.Duration) error
}
