package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names an order lifecycle event carried through the outbox.
type EventType string

const (
	EventOrderConfirmed EventType = "order.confirmed"
	EventOrderCancelled EventType = "order.cancelled"
	EventOrderShipped   EventType = "order.shipped"
	EventOrderDelivered EventType = "order.delivered"
)

// EventStatus is the delivery state of an outbox row.
type EventStatus string

const (
	EventStatusPending EventStatus = "pending"
	EventStatusSent    EventStatus = "sent"
	EventStatusFailed  EventStatus = "failed"
)

// OrderEvent is an outbox row written in the same transaction as the order
// change that produced it.
type OrderEvent struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"orderId" db:"order_id"`
	Type        EventType       `json:"type" db:"event_type"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	Status      EventStatus     `json:"status" db:"status"`
	Attempts    int             `json:"attempts" db:"attempts"`
	LastError   *string         `json:"lastError,omitempty" db:"last_error"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	ProcessedAt *time.Time      `json:"processedAt,omitempty" db:"processed_at"`
}

// OrderSnapshot is the event payload: enough of the order to notify the buyer
// without reading the order tables again.
type OrderSnapshot struct {
	OrderNumber string      `json:"orderNumber"`
	Customer    Customer    `json:"customer"`
	Order       *Order      `json:"order"`
	Items       []OrderItem `json:"items"`
	Reason      string      `json:"reason,omitempty"`
}

// NewOrderEvent builds a pending event for the given order snapshot.
func NewOrderEvent(eventType EventType, order *Order, items []OrderItem, reason string) (*OrderEvent, error) {
	payload, err := json.Marshal(OrderSnapshot{
		OrderNumber: order.OrderNumber,
		Customer:    order.Customer,
		Order:       order,
		Items:       items,
		Reason:      reason,
	})
	if err != nil {
		return nil, err
	}

	return &OrderEvent{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Type:      eventType,
		Payload:   payload,
		Status:    EventStatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Snapshot decodes the event payload.
func (e *OrderEvent) Snapshot() (*OrderSnapshot, error) {
	var s OrderSnapshot
	if err := json.Unmarshal(e.Payload, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
