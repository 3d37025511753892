package notification

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"
)

// Dispatcher routes an outbox event to the notifier calls it implies.
type Dispatcher struct {
	notifier Notifier
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(notifier Notifier) *Dispatcher {
	return &Dispatcher{notifier: notifier}
}

// Dispatch sends every message for the event. A confirmed order gets both the
// confirmation and the receipt; each is attempted even if the other fails.
func (d *Dispatcher) Dispatch(ctx context.Context, event *model.OrderEvent) error {
	snap, err := event.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to decode event payload: %w", err)
	}

	switch event.Type {
	case model.EventOrderConfirmed:
		return errors.Join(
			d.notifier.SendOrderConfirmation(ctx, snap),
			d.notifier.SendPaymentReceipt(ctx, snap),
		)
	case model.EventOrderCancelled:
		return d.notifier.SendCancellation(ctx, snap)
	case model.EventOrderShipped:
		return d.notifier.SendShipping(ctx, snap)
	case model.EventOrderDelivered:
		return d.notifier.SendDelivery(ctx, snap)
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
}
