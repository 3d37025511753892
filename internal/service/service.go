package service

import (
	"context"

	"storefront/internal/model"
)

// CheckoutService drives a cart through payment initiation and settles the
// gateway's callback exactly once per order.
type CheckoutService interface {
	// Initiate validates and prices the cart, persists a pending order and
	// starts a 3DS payment. The returned response carries the issuer challenge.
	Initiate(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error)

	// Reconcile settles a gateway callback. The result is non-nil whenever the
	// order was found; the error, if any, explains a failed settlement and is
	// suitable for model.FailureCategory. A callback for an already settled
	// order returns a result with AlreadyReconciled set and no error.
	Reconcile(ctx context.Context, payload model.CallbackPayload) (*model.ReconcileResult, error)
}

// OrderService exposes order views and operator actions.
type OrderService interface {
	// GetByOrderNumber returns the order with its items.
	GetByOrderNumber(ctx context.Context, orderNumber string) (*model.OrderResponse, error)

	// Requery settles a pending order from the gateway's record of its payment.
	// It is the recovery path when a callback never arrived or could not be processed.
	Requery(ctx context.Context, orderNumber string) (*model.ReconcileResult, error)

	// Cancel voids the payment of a confirmed order and marks it refunded.
	Cancel(ctx context.Context, orderNumber, reason string) (*model.OrderResponse, error)

	// MarkShipped moves a confirmed order to shipped.
	MarkShipped(ctx context.Context, orderNumber string) (*model.OrderResponse, error)

	// MarkDelivered moves a shipped order to delivered.
	MarkDelivered(ctx context.Context, orderNumber string) (*model.OrderResponse, error)
}
