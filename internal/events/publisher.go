// Package events publishes order status changes to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const TypeOrderStatusChanged = "order.status_changed"

type OrderEvent struct {
	EventID         string    `json:"event_id"`
	Type            string    `json:"type"`
	OrderID         string    `json:"order_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Status          string    `json:"status"`
	PreviousStatus  string    `json:"previous_status"`
	Source          string    `json:"source,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewStatusChanged stamps a fresh event id.
func NewStatusChanged(orderID, paymentIntentID, prev, next, source string, at time.Time) OrderEvent {
	return OrderEvent{
		EventID:         uuid.NewString(),
		Type:            TypeOrderStatusChanged,
		OrderID:         orderID,
		PaymentIntentID: paymentIntentID,
		Status:          next,
		PreviousStatus:  prev,
		Source:          source,
		OccurredAt:      at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }
