// Package notification delivers buyer emails for order lifecycle events and
// runs the outbox worker that drives them.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Template names. The templates themselves live with the mail provider.
const (
	TemplateConfirmation = "order-confirmation"
	TemplateReceipt      = "payment-receipt"
	TemplateShipping     = "order-shipped"
	TemplateDelivery     = "order-delivered"
	TemplateCancellation = "order-cancelled"
)

// Notifier sends the buyer-facing messages of an order's lifecycle.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *model.OrderSnapshot) error
	SendPaymentReceipt(ctx context.Context, order *model.OrderSnapshot) error
	SendShipping(ctx context.Context, order *model.OrderSnapshot) error
	SendDelivery(ctx context.Context, order *model.OrderSnapshot) error
	SendCancellation(ctx context.Context, order *model.OrderSnapshot) error
}

// Message names a provider-side template and carries its substitution data.
type Message struct {
	To       string
	Template string
	Data     json.RawMessage
}

// Sender hands a message to a mail transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type emailNotifier struct {
	sender Sender
	logger zerolog.Logger
}

// NewEmailNotifier sends lifecycle emails through sender.
func NewEmailNotifier(sender Sender, logger zerolog.Logger) Notifier {
	return &emailNotifier{
		sender: sender,
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

func (n *emailNotifier) SendOrderConfirmation(ctx context.Context, order *model.OrderSnapshot) error {
	return n.send(ctx, TemplateConfirmation, order)
}

func (n *emailNotifier) SendPaymentReceipt(ctx context.Context, order *model.OrderSnapshot) error {
	return n.send(ctx, TemplateReceipt, order)
}

func (n *emailNotifier) SendShipping(ctx context.Context, order *model.OrderSnapshot) error {
	return n.send(ctx, TemplateShipping, order)
}

func (n *emailNotifier) SendDelivery(ctx context.Context, order *model.OrderSnapshot) error {
	return n.send(ctx, TemplateDelivery, order)
}

func (n *emailNotifier) SendCancellation(ctx context.Context, order *model.OrderSnapshot) error {
	return n.send(ctx, TemplateCancellation, order)
}

func (n *emailNotifier) send(ctx context.Context, template string, order *model.OrderSnapshot) error {
	to := strings.TrimSpace(order.Customer.Email)
	if to == "" {
		return fmt.Errorf("order %s has no contact email", order.OrderNumber)
	}

	data, err := json.Marshal(newTemplateData(order))
	if err != nil {
		return fmt.Errorf("failed to encode %s data: %w", template, err)
	}

	if err := n.sender.Send(ctx, Message{To: to, Template: template, Data: data}); err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}

	n.logger.Info().Str("template", template).Str("order_number", order.OrderNumber).Msg("email sent")
	return nil
}
