package billing

import (
	"context"

	"github.com/stripe/stripe-go/v82"
)

// Gateway abstracts the payment processor. The production implementation is
// Stripe (stripe_gateway.go); tests inject fakes.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	GetPaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error)
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	CreateInvoice(ctx context.Context, customerID, idempotencyKey string) (string, error)
	AddInvoiceItem(ctx context.Context, customerID, invoiceID string, amountCents int64, description, idempotencyKey string) error
	FinalizeInvoice(ctx context.Context, invoiceID, idempotencyKey string) (*Invoice, error)
	VoidInvoice(ctx context.Context, invoiceID string) error

	CountActiveSubscriptions(ctx context.Context, customerID string) (int, error)
	CreatePaymentIntent(ctx context.Context, amountCents int64) (string, error)
	CreateSetupSession(ctx context.Context, customerID, successURL, cancelURL string) (string, error)

	// ParseWebhookEvent verifies the payload signature against the endpoint
	// secret before any parsing; failures wrap ErrInvalidSignature.
	ParseWebhookEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}
