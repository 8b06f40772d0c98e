package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/invoice"
	"github.com/stripe/stripe-go/v82/invoiceitem"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/paymentmethod"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/seoextraction/extractor-api/internal/pkg/env"
)

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	WebhookSecret string
	Currency      string
}

// NewStripeGatewayFromEnv configures the global Stripe key and returns a
// gateway. Called once at startup.
func NewStripeGatewayFromEnv() *StripeGateway {
	stripe.Key = strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	return &StripeGateway{
		WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		Currency:      env.GetEnv("BILLING_CURRENCY", string(stripe.CurrencyUSD)),
	}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx

	c, err := customer.New(params)
	if err != nil {
		return "", gatewayErr("create customer", err)
	}
	return c.ID, nil
}

func (g *StripeGateway) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := customer.Get(customerID, params)
	if err != nil {
		return nil, gatewayErr("get customer", err)
	}

	out := &Customer{ID: c.ID, Email: c.Email, Name: c.Name}
	if c.InvoiceSettings != nil && c.InvoiceSettings.DefaultPaymentMethod != nil {
		out.DefaultPaymentMethodID = c.InvoiceSettings.DefaultPaymentMethod.ID
	}
	return out, nil
}

func (g *StripeGateway) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := paymentmethod.Get(paymentMethodID, params)
	if err != nil {
		return nil, gatewayErr("get payment method", err)
	}

	out := &PaymentMethod{ID: pm.ID, Type: string(pm.Type)}
	if pm.Card != nil {
		out.Brand = string(pm.Card.Brand)
		out.Last4 = pm.Card.Last4
	}
	return out, nil
}

func (g *StripeGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx

	if _, err := customer.Update(customerID, params); err != nil {
		return gatewayErr("set default payment method", err)
	}
	return nil
}

func (g *StripeGateway) CreateInvoice(ctx context.Context, customerID, idempotencyKey string) (string, error) {
	params := &stripe.InvoiceParams{
		Customer:    stripe.String(customerID),
		AutoAdvance: stripe.Bool(true),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(idempotencyKey)

	inv, err := invoice.New(params)
	if err != nil {
		return "", gatewayErr("create invoice", err)
	}
	return inv.ID, nil
}

func (g *StripeGateway) AddInvoiceItem(ctx context.Context, customerID, invoiceID string, amountCents int64, description, idempotencyKey string) error {
	params := &stripe.InvoiceItemParams{
		Customer:    stripe.String(customerID),
		Invoice:     stripe.String(invoiceID),
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(g.Currency),
		Description: stripe.String(description),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(idempotencyKey)

	if _, err := invoiceitem.New(params); err != nil {
		return gatewayErr("add invoice item", err)
	}
	return nil
}

func (g *StripeGateway) FinalizeInvoice(ctx context.Context, invoiceID, idempotencyKey string) (*Invoice, error) {
	params := &stripe.InvoiceFinalizeInvoiceParams{}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(idempotencyKey)

	inv, err := invoice.FinalizeInvoice(invoiceID, params)
	if err != nil {
		return nil, gatewayErr("finalize invoice", err)
	}

	out := &Invoice{
		ID:          inv.ID,
		AmountCents: inv.AmountDue,
		Status:      string(inv.Status),
		HostedURL:   inv.HostedInvoiceURL,
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	return out, nil
}

func (g *StripeGateway) VoidInvoice(ctx context.Context, invoiceID string) error {
	params := &stripe.InvoiceVoidInvoiceParams{}
	params.Context = ctx

	if _, err := invoice.VoidInvoice(invoiceID, params); err != nil {
		return gatewayErr("void invoice", err)
	}
	return nil
}

func (g *StripeGateway) CountActiveSubscriptions(ctx context.Context, customerID string) (int, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	count := 0
	iter := subscription.List(params)
	for iter.Next() {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, gatewayErr("list subscriptions", err)
	}
	return count, nil
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amountCents int64) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(g.Currency),
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", gatewayErr("create payment intent", err)
	}
	return pi.ClientSecret, nil
}

func (g *StripeGateway) CreateSetupSession(ctx context.Context, customerID, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSetup)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(successURL),
		CancelURL:          stripe.String(cancelURL),
	}
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return "", gatewayErr("create setup session", err)
	}
	return s.ID, nil
}

func (g *StripeGateway) ParseWebhookEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, g.WebhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

func gatewayErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPaymentGateway, op, err)
}
