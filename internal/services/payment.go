package services

import (
	"context"
	"fmt"
	"math"

	"github.com/scholarhub/apiserver/internal/payment"
)

// PaymentService turns application fees into payment client secrets.
type PaymentService struct {
	provider payment.Provider
}

func NewPaymentService(provider payment.Provider) *PaymentService {
	return &PaymentService{provider: provider}
}

// CreateIntent converts amount from major to minor units and asks the
// provider for a client secret. Amounts below one minor unit are a no-op and
// yield an empty secret without contacting the provider.
func (s *PaymentService) CreateIntent(ctx context.Context, amount float64) (string, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount*100 < 1 {
		return "", nil
	}
	cents := int64(math.Round(amount * 100))

	secret, err := s.provider.CreateIntent(ctx, cents)
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	return secret, nil
}
