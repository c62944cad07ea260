package payment

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v83"
)

type StripeProvider struct {
	sc *stripe.Client
}

func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{sc: stripe.NewClient(secretKey)}
}

func (p *StripeProvider) CreateIntent(ctx context.Context, in IntentParams) (Intent, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(in.Amount),
		Currency: stripe.String(in.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: in.Metadata,
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	pi, err := p.sc.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return Intent{}, providerError(err)
	}
	return toIntent(pi), nil
}

func (p *StripeProvider) GetIntent(ctx context.Context, id string) (Intent, error) {
	pi, err := p.sc.V1PaymentIntents.Retrieve(ctx, id, &stripe.PaymentIntentRetrieveParams{})
	if err != nil {
		return Intent{}, providerError(err)
	}
	return toIntent(pi), nil
}

func (p *StripeProvider) ConfirmIntent(ctx context.Context, id string) (Intent, error) {
	pi, err := p.sc.V1PaymentIntents.Confirm(ctx, id, &stripe.PaymentIntentConfirmParams{})
	if err != nil {
		return Intent{}, providerError(err)
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) Intent {
	in := Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
	if pi.PaymentMethod != nil {
		in.PaymentMethodID = pi.PaymentMethod.ID
	}
	return in
}

func providerError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return &ProviderError{Msg: se.Msg, Err: err}
	}
	return &ProviderError{Msg: err.Error(), Err: err}
}
