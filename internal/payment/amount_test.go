package payment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v83"
)

func TestMajorUnits(t *testing.T) {
	cases := []struct {
		amount   int64
		currency string
		want     float64
	}{
		{4999, "usd", 49.99},
		{1, "eur", 0.01},
		{0, "usd", 0},
		{500, "jpy", 500},
		{12000, "KRW", 12000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MajorUnits(tc.amount, tc.currency), "%d %s", tc.amount, tc.currency)
	}
}

func TestToIntent(t *testing.T) {
	pi := &stripe.PaymentIntent{
		ID:            "pi_1",
		ClientSecret:  "pi_1_secret",
		Status:        stripe.PaymentIntentStatusSucceeded,
		Amount:        4999,
		Currency:      "usd",
		PaymentMethod: &stripe.PaymentMethod{ID: "pm_1"},
		Metadata:      map[string]string{"items": "[]"},
	}

	in := toIntent(pi)
	assert.Equal(t, "succeeded", in.Status)
	assert.Equal(t, "pm_1", in.PaymentMethodID)
	assert.Equal(t, int64(4999), in.Amount)
	assert.Equal(t, "[]", in.Metadata["items"])

	pi.PaymentMethod = nil
	assert.Empty(t, toIntent(pi).PaymentMethodID)
}

func TestProviderErrorKeepsStripeMessage(t *testing.T) {
	err := providerError(&stripe.Error{Msg: "No such payment_intent: 'pi_x'"})

	var pe *ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "No such payment_intent: 'pi_x'", err.Error())

	err = providerError(errors.New("dial tcp: timeout"))
	assert.Equal(t, "dial tcp: timeout", err.Error())
}
