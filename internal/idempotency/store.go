// Package idempotency tracks client-supplied Idempotency-Key values so a retried
// order submission is detected instead of silently overwriting the first one.
package idempotency

import (
	"context"
	"errors"
	"time"
)

const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

var ErrNotFound = errors.New("idempotency key not found")

type Record struct {
	Key             string    `json:"key"`
	Status          string    `json:"status"`
	OrderID         string    `json:"order_id,omitempty"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store is the contract shared by the in-memory and Redis implementations.
//
// Claim creates an IN_PROGRESS record only if key is unused and reports whether it
// did. Complete marks a claimed key DONE with the order it produced. Release drops a
// claim so the client may retry after a failure.
type Store interface {
	Claim(ctx context.Context, key string) (bool, error)
	Complete(ctx context.Context, key string, rec Record) error
	Release(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (Record, bool, error)
}
