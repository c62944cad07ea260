package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"Storefront/internal/cart"
	"Storefront/internal/events"
	"Storefront/internal/idempotency"
)

const intentSucceeded = "succeeded"

var (
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrDuplicateRequest    = errors.New("duplicate request")
)

// IntentStatusChecker reports the provider-side status of a payment intent.
type IntentStatusChecker interface {
	IntentStatus(ctx context.Context, paymentIntentID string) (string, error)
}

type IntentStatusFunc func(ctx context.Context, paymentIntentID string) (string, error)

func (f IntentStatusFunc) IntentStatus(ctx context.Context, paymentIntentID string) (string, error) {
	return f(ctx, paymentIntentID)
}

// PaymentLookupError wraps a provider failure hit while checking an intent.
type PaymentLookupError struct {
	Err error
}

func (e *PaymentLookupError) Error() string { return e.Err.Error() }
func (e *PaymentLookupError) Unwrap() error { return e.Err }

// DuplicateError carries what is known about the request that first claimed the key.
type DuplicateError struct {
	Record idempotency.Record
}

func (e *DuplicateError) Error() string { return ErrDuplicateRequest.Error() }
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicateRequest
}

type CreateInput struct {
	PaymentIntentID string
	Items           []cart.Item
	Total           float64
	Status          string
	CustomerInfo    json.RawMessage
	IdempotencyKey  string
}

type Recorder struct {
	Store     Store
	Payments  IntentStatusChecker
	Idem      idempotency.Store
	Publisher events.Publisher
	Log       *zap.Logger
	Now       func() time.Time
}

func NewRecorder(store Store, payments IntentStatusChecker, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		Store:     store,
		Payments:  payments,
		Publisher: events.Nop{},
		Log:       log,
		Now:       time.Now,
	}
}

// Create stores a new order. When a payment intent id is given its provider-side
// status must be succeeded.
func (rc *Recorder) Create(ctx context.Context, in CreateInput) (o Order, err error) {
	if in.IdempotencyKey != "" && rc.Idem != nil {
		var claimed bool
		claimed, err = rc.Idem.Claim(ctx, in.IdempotencyKey)
		if err != nil {
			return Order{}, fmt.Errorf("claim idempotency key: %w", err)
		}
		if !claimed {
			rec, _, _ := rc.Idem.Get(ctx, in.IdempotencyKey)
			return Order{}, &DuplicateError{Record: rec}
		}
		defer rc.settleKey(ctx, in.IdempotencyKey, &o, &err)
	}

	if in.PaymentIntentID != "" {
		status, err := rc.Payments.IntentStatus(ctx, in.PaymentIntentID)
		if err != nil {
			return Order{}, &PaymentLookupError{Err: err}
		}
		if status != intentSucceeded {
			return Order{}, ErrPaymentNotCompleted
		}
	}

	now := rc.Now().UTC()
	o = Order{
		OrderID:         "ORDER-" + strconv.FormatInt(now.UnixMilli(), 10),
		PaymentIntentID: in.PaymentIntentID,
		Items:           in.Items,
		Total:           in.Total,
		Status:          in.Status,
		CustomerInfo:    in.CustomerInfo,
		CreatedAt:       now,
	}
	if o.Items == nil {
		o.Items = []cart.Item{}
	}
	if o.Status == "" {
		o.Status = StatusCompleted
	}

	if err := rc.Store.Put(ctx, o); err != nil {
		return Order{}, fmt.Errorf("store order: %w", err)
	}

	rc.Log.Info("order stored",
		zap.String("order_id", o.OrderID),
		zap.String("payment_intent_id", o.PaymentIntentID),
	)
	return o, nil
}

func (rc *Recorder) settleKey(ctx context.Context, key string, o *Order, err *error) {
	if *err != nil {
		if rerr := rc.Idem.Release(ctx, key); rerr != nil {
			rc.Log.Warn("release idempotency key failed", zap.Error(rerr), zap.String("key", key))
		}
		return
	}
	rec := idempotency.Record{OrderID: o.OrderID, PaymentIntentID: o.PaymentIntentID}
	if cerr := rc.Idem.Complete(ctx, key, rec); cerr != nil {
		rc.Log.Warn("complete idempotency key failed", zap.Error(cerr), zap.String("key", key))
	}
}

func (rc *Recorder) Get(ctx context.Context, paymentIntentID string) (Order, bool, error) {
	return rc.Store.Get(ctx, paymentIntentID)
}

func (rc *Recorder) List(ctx context.Context) ([]Order, error) {
	return rc.Store.List(ctx)
}

// Reconcile moves an existing order to status. When from is given, only orders
// currently in one of those statuses move. Unknown orders and orders already in
// status are left alone and reported as unchanged.
func (rc *Recorder) Reconcile(ctx context.Context, paymentIntentID, status, source string, from ...string) (Order, bool, error) {
	cur, found, err := rc.Store.Get(ctx, paymentIntentID)
	if err != nil {
		return Order{}, false, err
	}
	if !found || cur.Status == status {
		return cur, false, nil
	}
	if len(from) > 0 && !slices.Contains(from, cur.Status) {
		return cur, false, nil
	}

	updated, err := rc.Store.UpdateStatus(ctx, paymentIntentID, status, rc.Now())
	if errors.Is(err, ErrNotFound) {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, false, err
	}

	rc.Log.Info("order reconciled",
		zap.String("order_id", updated.OrderID),
		zap.String("payment_intent_id", paymentIntentID),
		zap.String("from", cur.Status),
		zap.String("to", status),
	)

	ev := events.NewStatusChanged(updated.OrderID, paymentIntentID, cur.Status, status, source, rc.Now())
	if err := rc.Publisher.Publish(ctx, ev); err != nil {
		rc.Log.Warn("publish order event failed", zap.Error(err), zap.String("event_id", ev.EventID))
	}
	return updated, true, nil
}
