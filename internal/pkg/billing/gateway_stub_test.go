package billing

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v82"
)

// stubGateway lets each test override just the calls it cares about.
type stubGateway struct {
	createCustomer          func(ctx context.Context, email, name string) (string, error)
	getCustomer             func(ctx context.Context, customerID string) (*Customer, error)
	getPaymentMethod        func(ctx context.Context, paymentMethodID string) (*PaymentMethod, error)
	setDefaultPaymentMethod func(ctx context.Context, customerID, paymentMethodID string) error
	createInvoice           func(ctx context.Context, customerID, idempotencyKey string) (string, error)
	addInvoiceItem          func(ctx context.Context, customerID, invoiceID string, amountCents int64, description, idempotencyKey string) error
	finalizeInvoice         func(ctx context.Context, invoiceID, idempotencyKey string) (*Invoice, error)
	voidInvoice             func(ctx context.Context, invoiceID string) error
	countSubscriptions      func(ctx context.Context, customerID string) (int, error)
	createPaymentIntent     func(ctx context.Context, amountCents int64) (string, error)
	createSetupSession      func(ctx context.Context, customerID, successURL, cancelURL string) (string, error)
	parseWebhookEvent       func(payload []byte, signatureHeader string) (stripe.Event, error)
}

var errStubNotWired = errors.New("stub call not wired")

func (s *stubGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	if s.createCustomer == nil {
		return "", errStubNotWired
	}
	return s.createCustomer(ctx, email, name)
}

func (s *stubGateway) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	if s.getCustomer == nil {
		return nil, errStubNotWired
	}
	return s.getCustomer(ctx, customerID)
}

func (s *stubGateway) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error) {
	if s.getPaymentMethod == nil {
		return nil, errStubNotWired
	}
	return s.getPaymentMethod(ctx, paymentMethodID)
}

func (s *stubGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	if s.setDefaultPaymentMethod == nil {
		return errStubNotWired
	}
	return s.setDefaultPaymentMethod(ctx, customerID, paymentMethodID)
}

func (s *stubGateway) CreateInvoice(ctx context.Context, customerID, idempotencyKey string) (string, error) {
	if s.createInvoice == nil {
		return "", errStubNotWired
	}
	return s.createInvoice(ctx, customerID, idempotencyKey)
}

func (s *stubGateway) AddInvoiceItem(ctx context.Context, customerID, invoiceID string, amountCents int64, description, idempotencyKey string) error {
	if s.addInvoiceItem == nil {
		return errStubNotWired
	}
	return s.addInvoiceItem(ctx, customerID, invoiceID, amountCents, description, idempotencyKey)
}

func (s *stubGateway) FinalizeInvoice(ctx context.Context, invoiceID, idempotencyKey string) (*Invoice, error) {
	if s.finalizeInvoice == nil {
		return nil, errStubNotWired
	}
	return s.finalizeInvoice(ctx, invoiceID, idempotencyKey)
}

func (s *stubGateway) VoidInvoice(ctx context.Context, invoiceID string) error {
	if s.voidInvoice == nil {
		return errStubNotWired
	}
	return s.voidInvoice(ctx, invoiceID)
}

func (s *stubGateway) CountActiveSubscriptions(ctx context.Context, customerID string) (int, error) {
	if s.countSubscriptions == nil {
		return 0, errStubNotWired
	}
	return s.countSubscriptions(ctx, customerID)
}

func (s *stubGateway) CreatePaymentIntent(ctx context.Context, amountCents int64) (string, error) {
	if s.createPaymentIntent == nil {
		return "", errStubNotWired
	}
	return s.createPaymentIntent(ctx, amountCents)
}

func (s *stubGateway) CreateSetupSession(ctx context.Context, customerID, successURL, cancelURL string) (string, error) {
	if s.createSetupSession == nil {
		return "", errStubNotWired
	}
	return s.createSetupSession(ctx, customerID, successURL, cancelURL)
}

func (s *stubGateway) ParseWebhookEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if s.parseWebhookEvent == nil {
		return stripe.Event{}, errStubNotWired
	}
	return s.parseWebhookEvent(payload, signatureHeader)
}
