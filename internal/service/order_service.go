package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	*settlement
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	outbox repository.OutboxRepository,
	gw gateway.Client,
	stock *StockReconciler,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		settlement: &settlement{
			orders:  orders,
			outbox:  outbox,
			stock:   stock,
			gateway: gw,
			now:     time.Now,
			logger:  logger.With().Str("service", "order").Logger(),
		},
	}
}

// GetByOrderNumber retrieves an order with its items.
func (s *orderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.OrderResponse, error) {
	order, items, err := s.load(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	return &model.OrderResponse{Order: order, Items: items}, nil
}

// Requery settles a pending order from the gateway's record of the payment.
func (s *orderService) Requery(ctx context.Context, orderNumber string) (*model.ReconcileResult, error) {
	order, items, err := s.load(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if !order.IsPending() {
		return &model.ReconcileResult{OrderNumber: order.OrderNumber, State: order.State(), AlreadyReconciled: true}, nil
	}

	s.logger.Info().Str("order_number", order.OrderNumber).Msg("re-querying payment")

	req := gateway.RetrieveRequest{ConversationID: order.ConversationID}
	if order.PaymentID != nil {
		req.PaymentID = *order.PaymentID
	}

	res, err := s.gateway.RetrievePayment(ctx, req)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("gateway unavailable, order left pending")
		return &model.ReconcileResult{OrderNumber: order.OrderNumber, State: order.State()}, model.ErrGatewayUnavailable
	}

	return s.settleRetrieved(ctx, order, items, res)
}

// Cancel voids the gateway payment of a confirmed order and marks it refunded.
func (s *orderService) Cancel(ctx context.Context, orderNumber, reason string) (*model.OrderResponse, error) {
	order, items, err := s.load(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if order.State() != model.StatePaid || order.PaymentID == nil || *order.PaymentID == "" {
		return nil, model.ErrInvalidStateForRequest
	}

	reason = cleanReason(strings.TrimSpace(reason))
	if reason == "" {
		reason = "cancelled by operator"
	}

	logger := s.logger.With().
		Str("order_number", order.OrderNumber).
		Str("payment_id", *order.PaymentID).
		Logger()

	if err := s.reverse(ctx, order, logger); err != nil {
		return nil, err
	}

	// The money has moved; the order must follow even if the caller gave up.
	ctx = context.WithoutCancel(ctx)

	change := model.StatusChange{To: model.StateCancelled, FailureReason: &reason}
	if err := s.transition(ctx, order, items, model.StatePaid, change, model.EventOrderCancelled); err != nil {
		logger.Error().Err(err).Msg("payment cancelled but order update failed")
		return nil, err
	}

	logger.Info().Str("reason", reason).Msg("order cancelled")
	return &model.OrderResponse{Order: order, Items: items}, nil
}

// MarkShipped moves a confirmed order to shipped.
func (s *orderService) MarkShipped(ctx context.Context, orderNumber string) (*model.OrderResponse, error) {
	return s.advance(ctx, orderNumber, model.StatePaid, model.StateShipped, model.EventOrderShipped)
}

// MarkDelivered moves a shipped order to delivered.
func (s *orderService) MarkDelivered(ctx context.Context, orderNumber string) (*model.OrderResponse, error) {
	return s.advance(ctx, orderNumber, model.StateShipped, model.StateDelivered, model.EventOrderDelivered)
}

// reverse voids the payment. Gateways only void same-day payments, so a
// refused cancel falls back to refunding every captured line.
func (s *orderService) reverse(ctx context.Context, order *model.Order, logger zerolog.Logger) error {
	res, err := s.gateway.Cancel(ctx, *order.PaymentID, order.ConversationID)
	if err != nil {
		logger.Warn().Err(err).Msg("gateway unavailable during cancellation")
		return model.ErrGatewayUnavailable
	}

	f, refused := res.(gateway.Failure)
	if !refused {
		return nil
	}
	if len(order.PaymentTransactions) == 0 {
		logger.Warn().Str("code", f.Code).Str("gateway_message", f.Message).Msg("gateway refused cancellation")
		return model.ErrPaymentDeclined
	}

	logger.Info().Str("code", f.Code).Msg("cancel refused, refunding transactions")
	return s.refund(ctx, order, logger)
}

// refund returns each captured line that has not been refunded yet. Lines are
// flagged as they succeed, so a retried cancellation picks up where a failed
// one stopped.
func (s *orderService) refund(ctx context.Context, order *model.Order, logger zerolog.Logger) error {
	for i := range order.PaymentTransactions {
		t := &order.PaymentTransactions[i]
		if t.Refunded || !t.Amount.IsPositive() {
			continue
		}

		txLogger := logger.With().
			Str("transaction_id", t.TransactionID).
			Str("amount", t.Amount.StringFixed(2)).
			Logger()

		res, err := s.gateway.Refund(ctx, t.TransactionID, t.Amount, order.Currency, order.ConversationID)
		if err != nil {
			txLogger.Warn().Err(err).Msg("gateway unavailable during refund")
			return model.ErrGatewayUnavailable
		}
		if f, ok := res.(gateway.Failure); ok {
			txLogger.Warn().Str("code", f.Code).Str("gateway_message", f.Message).Msg("gateway refused refund")
			return model.ErrPaymentDeclined
		}

		t.Refunded = true
		if err := s.orders.MarkTransactionRefunded(context.WithoutCancel(ctx), order.ID, t.TransactionID); err != nil {
			txLogger.Error().Err(err).Msg("refund issued but not recorded")
		}
		txLogger.Info().Msg("transaction refunded")
	}

	return nil
}

func (s *orderService) advance(ctx context.Context, orderNumber string, from, to model.OrderState, event model.EventType) (*model.OrderResponse, error) {
	order, items, err := s.load(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if order.State() != from {
		return nil, model.ErrInvalidStateForRequest
	}

	err = s.transition(ctx, order, items, from, model.StatusChange{To: to}, event)
	if errors.Is(err, model.ErrStatusConflict) {
		return nil, model.ErrInvalidStateForRequest
	}
	if err != nil {
		s.logger.Error().Err(err).Str("order_number", orderNumber).Stringer("to", to).Msg("failed to update order status")
		return nil, err
	}

	s.logger.Info().Str("order_number", orderNumber).Stringer("status", to).Msg("order status updated")
	return &model.OrderResponse{Order: order, Items: items}, nil
}

func (s *orderService) load(ctx context.Context, orderNumber string) (*model.Order, []model.OrderItem, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, nil, model.ErrOrderNotFound
	}

	order, items, err := s.orders.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		s.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to load order")
		return nil, nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, nil, model.ErrOrderNotFound
	}

	return order, items, nil
}
