package order

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Storefront/internal/cart"
	"Storefront/internal/events"
	"Storefront/internal/idempotency"
)

type fakeIntents map[string]string

func (f fakeIntents) IntentStatus(_ context.Context, id string) (string, error) {
	st, ok := f[id]
	if !ok {
		return "", errors.New("No such payment_intent: '" + id + "'")
	}
	return st, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRecorder(intents fakeIntents) (*Recorder, *MemStore) {
	store := NewMemStore()
	rc := NewRecorder(store, intents, zap.NewNop())
	rc.Now = func() time.Time { return fixedNow }
	return rc, store
}

func widget() []cart.Item {
	return []cart.Item{{ID: json.RawMessage(`1`), Name: "Widget", Quantity: 1, Price: 49.99}}
}

func TestRecorder_CreateSucceeded(t *testing.T) {
	rc, _ := newTestRecorder(fakeIntents{"pi_abc": "succeeded"})
	ctx := context.Background()

	o, err := rc.Create(ctx, CreateInput{PaymentIntentID: "pi_abc", Items: widget(), Total: 49.99})
	require.NoError(t, err)

	assert.Equal(t, "ORDER-1772366400000", o.OrderID)
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, fixedNow, o.CreatedAt)
	assert.Nil(t, o.UpdatedAt)

	got, found, err := rc.Get(ctx, "pi_abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, o, got)
}

func TestRecorder_CreateRejectsUnpaidIntent(t *testing.T) {
	rc, store := newTestRecorder(fakeIntents{"pi_pending": "requires_payment_method"})

	_, err := rc.Create(context.Background(), CreateInput{PaymentIntentID: "pi_pending", Items: widget(), Total: 49.99})
	require.ErrorIs(t, err, ErrPaymentNotCompleted)

	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRecorder_CreateProviderFailure(t *testing.T) {
	rc, _ := newTestRecorder(fakeIntents{})

	_, err := rc.Create(context.Background(), CreateInput{PaymentIntentID: "pi_missing"})

	var lookup *PaymentLookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "No such payment_intent: 'pi_missing'", lookup.Error())
}

func TestRecorder_CreateKeepsCallerStatus(t *testing.T) {
	rc, _ := newTestRecorder(fakeIntents{"pi_1": "succeeded"})

	o, err := rc.Create(context.Background(), CreateInput{PaymentIntentID: "pi_1", Status: "processing"})
	require.NoError(t, err)
	assert.Equal(t, "processing", o.Status)
	assert.NotNil(t, o.Items)
}

func TestRecorder_MissingIntentIDOverwrites(t *testing.T) {
	rc, store := newTestRecorder(fakeIntents{})
	ctx := context.Background()

	_, err := rc.Create(ctx, CreateInput{Items: widget(), Total: 1})
	require.NoError(t, err)
	_, err = rc.Create(ctx, CreateInput{Items: widget(), Total: 2})
	require.NoError(t, err)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2.0, all[0].Total)
}

func TestRecorder_IdempotencyKey(t *testing.T) {
	rc, store := newTestRecorder(fakeIntents{"pi_1": "succeeded", "pi_2": "requires_action"})
	rc.Idem = idempotency.NewMemStore(time.Hour)
	ctx := context.Background()

	first, err := rc.Create(ctx, CreateInput{PaymentIntentID: "pi_1", IdempotencyKey: "k1"})
	require.NoError(t, err)

	_, err = rc.Create(ctx, CreateInput{PaymentIntentID: "pi_1", Total: 99, IdempotencyKey: "k1"})
	require.ErrorIs(t, err, ErrDuplicateRequest)

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.OrderID, dup.Record.OrderID)
	assert.Equal(t, "pi_1", dup.Record.PaymentIntentID)

	got, _, err := store.Get(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Total, "duplicate must not overwrite")

	// A failed attempt releases its key.
	_, err = rc.Create(ctx, CreateInput{PaymentIntentID: "pi_2", IdempotencyKey: "k2"})
	require.ErrorIs(t, err, ErrPaymentNotCompleted)

	_, found, err := rc.Idem.Get(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecorder_Reconcile(t *testing.T) {
	rc, _ := newTestRecorder(fakeIntents{"pi_1": "succeeded"})
	pub := &recordingPublisher{}
	rc.Publisher = pub
	ctx := context.Background()

	created, err := rc.Create(ctx, CreateInput{PaymentIntentID: "pi_1", Items: widget(), Total: 49.99})
	require.NoError(t, err)

	_, changed, err := rc.Reconcile(ctx, "pi_1", StatusCompleted, "evt_1")
	require.NoError(t, err)
	assert.False(t, changed, "same status is a no-op")
	assert.Empty(t, pub.events)

	updated, changed, err := rc.Reconcile(ctx, "pi_1", StatusRefunded, "evt_2")
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, StatusRefunded, updated.Status)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.NotNil(t, updated.UpdatedAt)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, events.TypeOrderStatusChanged, ev.Type)
	assert.Equal(t, created.OrderID, ev.OrderID)
	assert.Equal(t, StatusCompleted, ev.PreviousStatus)
	assert.Equal(t, StatusRefunded, ev.Status)
	assert.Equal(t, "evt_2", ev.Source)
}

func TestRecorder_ReconcileFromRestrictsSource(t *testing.T) {
	rc, store := newTestRecorder(fakeIntents{"pi_1": "succeeded"})
	pub := &recordingPublisher{}
	rc.Publisher = pub
	ctx := context.Background()

	_, err := rc.Create(ctx, CreateInput{PaymentIntentID: "pi_1", Status: "pending"})
	require.NoError(t, err)

	o, changed, err := rc.Reconcile(ctx, "pi_1", StatusCompleted, "evt_1", StatusFailed)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "pending", o.Status)
	assert.Empty(t, pub.events)

	_, err = store.UpdateStatus(ctx, "pi_1", StatusFailed, fixedNow)
	require.NoError(t, err)

	o, changed, err = rc.Reconcile(ctx, "pi_1", StatusCompleted, "evt_2", StatusFailed)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusCompleted, o.Status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, StatusFailed, pub.events[0].PreviousStatus)
}

func TestRecorder_ReconcileUnknownOrder(t *testing.T) {
	rc, store := newTestRecorder(fakeIntents{})

	_, changed, err := rc.Reconcile(context.Background(), "pi_nope", StatusFailed, "evt_1")
	require.NoError(t, err)
	assert.False(t, changed)

	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRecorder_ReconcilePublishFailureIsNotFatal(t *testing.T) {
	rc, _ := newTestRecorder(fakeIntents{"pi_1": "succeeded"})
	rc.Publisher = &recordingPublisher{err: errors.New("queue down")}
	ctx := context.Background()

	_, err := rc.Create(ctx, CreateInput{PaymentIntentID: "pi_1"})
	require.NoError(t, err)

	_, changed, err := rc.Reconcile(ctx, "pi_1", StatusFailed, "evt_1")
	require.NoError(t, err)
	assert.True(t, changed)
}
