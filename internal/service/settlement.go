package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// settlement holds the state-changing steps shared by callback reconciliation
// and operator actions. Every status change is a compare-and-swap, and the
// outbox row describing it is written in the same transaction.
type settlement struct {
	orders  repository.OrderRepository
	outbox  repository.OutboxRepository
	stock   *StockReconciler
	gateway gateway.Client
	now     func() time.Time
	logger  zerolog.Logger
}

// transition moves order from one state to another and, when event is set,
// enqueues the matching outbox row. On success order reflects the change.
func (s *settlement) transition(ctx context.Context, order *model.Order, items []model.OrderItem, from model.OrderState, change model.StatusChange, event model.EventType) (err error) {
	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Str("order_number", order.OrderNumber).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orders.TransitionStatus(ctx, tx, order.ID, from, change); err != nil {
		return err
	}

	if event != "" {
		updated := *order
		applyChange(&updated, change, s.now())

		reason := ""
		if change.FailureReason != nil {
			reason = *change.FailureReason
		}

		var ev *model.OrderEvent
		ev, err = model.NewOrderEvent(event, &updated, items, reason)
		if err != nil {
			return fmt.Errorf("failed to build order event: %w", err)
		}
		if err = s.outbox.Enqueue(ctx, tx, ev); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	applyChange(order, change, s.now())
	return nil
}

// fail settles a pending order as cancelled/failed and returns cause.
func (s *settlement) fail(ctx context.Context, order *model.Order, items []model.OrderItem, reason string, cause error) (*model.ReconcileResult, error) {
	ctx = context.WithoutCancel(ctx)
	reason = cleanReason(reason)

	s.logger.Warn().
		Str("order_number", order.OrderNumber).
		Str("reason", reason).
		Msg("payment failed")

	change := model.StatusChange{To: model.StateFailed, FailureReason: &reason}
	err := s.transition(ctx, order, items, model.StatePending, change, model.EventOrderCancelled)
	if errors.Is(err, model.ErrStatusConflict) {
		return s.alreadyReconciled(ctx, order), nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("order_number", order.OrderNumber).Msg("failed to record payment failure")
		return &model.ReconcileResult{OrderNumber: order.OrderNumber, State: order.State()},
			fmt.Errorf("failed to record payment failure: %w", err)
	}

	return &model.ReconcileResult{OrderNumber: order.OrderNumber, State: model.StateFailed}, cause
}

// settleRetrieved applies the verification gate to the gateway's record of
// the payment and confirms or fails the order accordingly.
func (s *settlement) settleRetrieved(ctx context.Context, order *model.Order, items []model.OrderItem, res gateway.PaymentResult) (*model.ReconcileResult, error) {
	switch r := res.(type) {
	case gateway.Payment:
		if reason := verifyPayment(order, r); reason != "" {
			return s.fail(ctx, order, items, reason, model.ErrVerificationFailed)
		}
		return s.confirm(ctx, order, items, r)
	case gateway.Failure:
		reason := fmt.Sprintf("payment verification failed: gateway error %s: %s", r.Code, r.Message)
		return s.fail(ctx, order, items, reason, model.ErrVerificationFailed)
	default:
		return s.fail(ctx, order, items, "payment verification failed: empty gateway response", model.ErrVerificationFailed)
	}
}

// confirm marks the order paid, then reconciles stock. Stock problems are
// logged and never undo the confirmation.
func (s *settlement) confirm(ctx context.Context, order *model.Order, items []model.OrderItem, payment gateway.Payment) (*model.ReconcileResult, error) {
	ctx = context.WithoutCancel(ctx)

	installment := payment.Installment
	if installment == 0 {
		installment = order.Installment
	}

	change := model.StatusChange{
		To: model.StatePaid,
		Payment: &model.PaymentDetails{
			PaymentID:    payment.PaymentID,
			Transactions: paymentTransactions(payment),
			Installment:  installment,
			PaidAt:       s.now().UTC(),
		},
	}

	err := s.transition(ctx, order, items, model.StatePending, change, model.EventOrderConfirmed)
	if errors.Is(err, model.ErrStatusConflict) {
		return s.alreadyReconciled(ctx, order), nil
	}
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("order_number", order.OrderNumber).
			Str("payment_id", payment.PaymentID).
			Msg("payment verified but order confirmation failed")
		return &model.ReconcileResult{OrderNumber: order.OrderNumber, State: order.State()},
			fmt.Errorf("failed to confirm order: %w", err)
	}

	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Str("payment_id", payment.PaymentID).
		Str("total", order.Total.StringFixed(2)).
		Msg("order confirmed")

	if err := s.stock.Reconcile(ctx, order.OrderNumber, items); err != nil {
		s.logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("stock reconciliation incomplete")
	}

	return &model.ReconcileResult{OrderNumber: order.OrderNumber, State: model.StatePaid}, nil
}

// alreadyReconciled reports the order's settled state after losing a race.
func (s *settlement) alreadyReconciled(ctx context.Context, order *model.Order) *model.ReconcileResult {
	state := order.State()
	if current, _, err := s.orders.GetByConversationID(ctx, order.ConversationID); err == nil && current != nil {
		state = current.State()
	}

	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Stringer("state", state).
		Msg("order already reconciled")

	return &model.ReconcileResult{OrderNumber: order.OrderNumber, State: state, AlreadyReconciled: true}
}

// verifyPayment returns a failure reason, or "" when the gateway's record
// matches the order.
func verifyPayment(order *model.Order, p gateway.Payment) string {
	if p.PaymentStatus != gateway.PaymentStatusSuccess {
		return fmt.Sprintf("payment verification failed: payment status %q", p.PaymentStatus)
	}
	if p.ConversationID != "" && p.ConversationID != order.ConversationID {
		return "payment verification failed: conversation mismatch"
	}
	if p.BasketID != order.OrderNumber {
		return fmt.Sprintf("payment verification failed: basket mismatch (paid %q, order %s)", p.BasketID, order.OrderNumber)
	}
	if p.Currency != "" && p.Currency != order.Currency {
		return fmt.Sprintf("payment verification failed: currency mismatch (paid %s, order %s)", p.Currency, order.Currency)
	}
	if !p.PaidPrice.Round(2).Equal(order.Total.Round(2)) {
		return fmt.Sprintf("amount mismatch: gateway paid %s, order total %s",
			p.PaidPrice.StringFixed(2), order.Total.StringFixed(2))
	}
	return ""
}

func applyChange(order *model.Order, change model.StatusChange, now time.Time) {
	order.Status = change.To.Status
	order.PaymentStatus = change.To.PaymentStatus
	if change.FailureReason != nil {
		reason := *change.FailureReason
		order.FailureReason = &reason
	}
	if p := change.Payment; p != nil {
		paymentID := p.PaymentID
		paidAt := p.PaidAt
		order.PaymentID = &paymentID
		order.PaymentTransactions = append([]model.PaymentTransaction(nil), p.Transactions...)
		order.Installment = p.Installment
		order.PaidAt = &paidAt
	}
	order.UpdatedAt = now
}

func paymentTransactions(p gateway.Payment) []model.PaymentTransaction {
	out := make([]model.PaymentTransaction, 0, len(p.Transactions))
	for _, t := range p.Transactions {
		out = append(out, model.PaymentTransaction{
			ItemID:        t.ItemID,
			TransactionID: t.TransactionID,
			Amount:        t.PaidPrice,
		})
	}
	return out
}
