package billing

import (
	"context"
	"errors"
)

// Resolver fetches a customer's configured default payment instrument.
type Resolver struct {
	gateway Gateway
}

// NewResolver creates a resolver over the given gateway.
func NewResolver(gateway Gateway) *Resolver {
	return &Resolver{gateway: gateway}
}

// Resolve returns the customer's default payment method, or (nil, nil) when
// none is configured. Absence is a valid state for a customer who has not
// completed setup; only processor faults surface as errors.
func (r *Resolver) Resolve(ctx context.Context, customerID string) (*PaymentMethod, error) {
	if customerID == "" {
		return nil, errors.New("customer id is required")
	}

	c, err := r.gateway.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c.DefaultPaymentMethodID == "" {
		return nil, nil
	}

	return r.gateway.GetPaymentMethod(ctx, c.DefaultPaymentMethodID)
}
