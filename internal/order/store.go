package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"Storefront/internal/cart"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

var ErrNotFound = errors.New("order not found")

// Order is keyed by PaymentIntentID. OrderID is a display reference only.
type Order struct {
	OrderID         string          `json:"orderId"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	Items           []cart.Item     `json:"items"`
	Total           float64         `json:"total"`
	Status          string          `json:"status"`
	CustomerInfo    json.RawMessage `json:"customerInfo,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       *time.Time      `json:"updatedAt,omitempty"`
}

// Store persists orders by payment intent id.
//
// Put is an upsert: writing an existing key replaces the order (last write wins) but
// keeps its original position in List. UpdateStatus returns ErrNotFound for unknown keys.
type Store interface {
	Put(ctx context.Context, o Order) error
	Get(ctx context.Context, paymentIntentID string) (Order, bool, error)
	List(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, paymentIntentID, status string, at time.Time) (Order, error)
	Ping(ctx context.Context) error
}
