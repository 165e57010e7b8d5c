// Package payment obtains client secrets from an external payment processor.
package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// Provider creates a payment intent for an amount in minor currency units
// and returns the client secret used to complete it out of band.
type Provider interface {
	CreateIntent(ctx context.Context, amountMinor int64) (string, error)
}

// ErrNotConfigured is returned by Disabled for every request.
var ErrNotConfigured = errors.New("payment provider is not configured")

// Disabled is the Provider used when no processor credentials are present.
type Disabled struct{}

func (Disabled) CreateIntent(context.Context, int64) (string, error) {
	return "", ErrNotConfigured
}

// StripeProvider implements Provider on top of Stripe PaymentIntents.
type StripeProvider struct {
	api      *client.API
	currency string
}

// NewStripeProvider constructs a Stripe-backed provider.
func NewStripeProvider(secretKey, currency string) (*StripeProvider, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("stripe secret key is required")
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &StripeProvider{
		api:      client.New(secretKey, nil),
		currency: currency,
	}, nil
}

// CreateIntent asks Stripe for a card payment intent.
func (p *StripeProvider) CreateIntent(ctx context.Context, amountMinor int64) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountMinor),
		Currency:           stripe.String(p.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	intent, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return "", err
	}
	return intent.ClientSecret, nil
}
