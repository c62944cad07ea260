package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
	"go.uber.org/zap"

	"Storefront/internal/order"
	"Storefront/pkg/kit"
)

const (
	maxWebhookBody  = int64(65536)
	signatureHeader = "Stripe-Signature"

	eventIntentSucceeded = "payment_intent.succeeded"
	eventIntentFailed    = "payment_intent.payment_failed"
	eventChargeRefunded  = "charge.refunded"
)

// Reconciler applies a provider-reported status to the local order, if there is one.
// A non-empty from restricts which current statuses may change.
type Reconciler interface {
	Reconcile(ctx context.Context, paymentIntentID, status, source string, from ...string) (order.Order, bool, error)
}

// Webhooks verifies and dispatches provider events.
type Webhooks struct {
	Secret  string
	Orders  Reconciler
	Log     *zap.Logger
	Metrics *Metrics
}

type webhookResp struct {
	Received bool `json:"received"`
}

func (h *Webhooks) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Secret == "" {
		h.Metrics.webhook("", outcomeRejected)
		kit.WriteError(w, r, http.StatusBadRequest, kit.KindWebhookVerificationFailed, "Webhook secret not configured", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.Metrics.webhook("", outcomeRejected)
		kit.WriteError(w, r, http.StatusBadRequest, kit.KindWebhookVerificationFailed, "Webhook Error: "+err.Error(), nil)
		return
	}

	ev, err := webhook.ConstructEventWithOptions(payload, r.Header.Get(signatureHeader), h.Secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.Log.Warn("webhook verification failed", zap.Error(err))
		h.Metrics.webhook("", outcomeRejected)
		kit.WriteError(w, r, http.StatusBadRequest, kit.KindWebhookVerificationFailed, "Webhook Error: "+err.Error(), nil)
		return
	}

	eventType := string(ev.Type)
	h.Log.Info("webhook event received", zap.String("event_id", ev.ID), zap.String("type", eventType))

	outcome, err := h.dispatch(r.Context(), ev)
	h.Metrics.webhook(eventType, outcome)
	if err != nil {
		h.Log.Error("webhook handling failed", zap.Error(err),
			zap.String("event_id", ev.ID), zap.String("type", eventType))
		kit.WriteError(w, r, http.StatusInternalServerError, kit.KindInternal, "Internal server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, webhookResp{Received: true})
}

// dispatch returns an error only when the order store failed, so the provider retries.
// Payloads that cannot be decoded are logged and acknowledged.
func (h *Webhooks) dispatch(ctx context.Context, ev stripe.Event) (string, error) {
	switch string(ev.Type) {
	case eventIntentSucceeded, eventIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil || pi.ID == "" {
			h.Log.Warn("undecodable payment intent event", zap.Error(err), zap.String("event_id", ev.ID))
			return outcomeUndecoded, nil
		}
		if string(ev.Type) == eventIntentFailed {
			h.Log.Info("payment failed", zap.String("payment_intent_id", pi.ID), zap.String("event_id", ev.ID))
			return h.reconcile(ctx, pi.ID, order.StatusFailed, ev.ID)
		}
		// Orders are recorded only after success, so this only revives a failed one.
		return h.reconcile(ctx, pi.ID, order.StatusCompleted, ev.ID, order.StatusFailed)

	case eventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(ev.Data.Raw, &ch); err != nil || ch.PaymentIntent == nil || ch.PaymentIntent.ID == "" {
			h.Log.Warn("undecodable charge event", zap.Error(err), zap.String("event_id", ev.ID))
			return outcomeUndecoded, nil
		}
		if !ch.Refunded {
			h.Log.Info("partial refund", zap.String("charge_id", ch.ID),
				zap.Int64("amount_refunded", ch.AmountRefunded), zap.String("payment_intent_id", ch.PaymentIntent.ID))
			return outcomeUnchanged, nil
		}
		return h.reconcile(ctx, ch.PaymentIntent.ID, order.StatusRefunded, ev.ID)

	default:
		h.Log.Info("unhandled webhook event", zap.String("type", string(ev.Type)), zap.String("event_id", ev.ID))
		return outcomeUnhandled, nil
	}
}

func (h *Webhooks) reconcile(ctx context.Context, paymentIntentID, status, eventID string, from ...string) (string, error) {
	if h.Orders == nil {
		return outcomeUnchanged, nil
	}

	_, changed, err := h.Orders.Reconcile(ctx, paymentIntentID, status, eventID, from...)
	if err != nil {
		return outcomeError, err
	}
	if !changed {
		return outcomeUnchanged, nil
	}
	return outcomeReconciled, nil
}
