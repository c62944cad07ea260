// Package payment creates, inspects and confirms payment intents and turns provider
// webhooks into order status updates.
package payment

import (
	"context"
)

type IntentParams struct {
	// Amount is in minor units (cents for usd).
	Amount         int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ID              string
	ClientSecret    string
	Status          string
	Amount          int64
	Currency        string
	PaymentMethodID string
	Metadata        map[string]string
}

// Provider is the payment processor. Implementations return *ProviderError for
// failures reported by the processor itself.
type Provider interface {
	CreateIntent(ctx context.Context, p IntentParams) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
	ConfirmIntent(ctx context.Context, id string) (Intent, error)
}

// ProviderError keeps the processor's message so it can be shown to the caller verbatim.
type ProviderError struct {
	Msg string
	Err error
}

func (e *ProviderError) Error() string { return e.Msg }
func (e *ProviderError) Unwrap() error { return e.Err }

// IntentStatus adapts a Provider to the order recorder's status check.
func IntentStatus(p Provider) func(ctx context.Context, id string) (string, error) {
	return func(ctx context.Context, id string) (string, error) {
		in, err := p.GetIntent(ctx, id)
		if err != nil {
			return "", err
		}
		return in.Status, nil
	}
}
