// Package events publishes order lifecycle events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Publisher delivers an order event to a message broker.
type Publisher interface {
	Publish(ctx context.Context, event *model.OrderEvent) error
	Close()
}

// Envelope is the broker message body.
type Envelope struct {
	ID        string          `json:"id"`
	Type      model.EventType `json:"type"`
	OrderID   string          `json:"orderId"`
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope wraps an outbox row for publication.
func NewEnvelope(event *model.OrderEvent) Envelope {
	return Envelope{
		ID:        event.ID.String(),
		Type:      event.Type,
		OrderID:   event.OrderID.String(),
		CreatedAt: event.CreatedAt.UTC(),
		Payload:   event.Payload,
	}
}

type nopPublisher struct {
	logger zerolog.Logger
}

// NewNopPublisher returns a publisher that only logs. It is used when no
// broker is configured.
func NewNopPublisher(logger zerolog.Logger) Publisher {
	return &nopPublisher{logger: logger.With().Str("component", "event-publisher").Logger()}
}

func (p *nopPublisher) Publish(_ context.Context, event *model.OrderEvent) error {
	p.logger.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Msg("event publication disabled")
	return nil
}

func (p *nopPublisher) Close() {}
