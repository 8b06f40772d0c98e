package billing

import (
	"errors"
	"fmt"
)

// ErrPaymentGateway marks processor-communication faults. It is never used
// for "no payment method", which is a valid state, not a fault.
var ErrPaymentGateway = errors.New("payment gateway error")

// ErrNoPaymentMethod is a domain condition: the customer has not completed
// payment setup. Callers should prompt setup instead of retrying.
var ErrNoPaymentMethod = errors.New("no default payment method")

// ErrInvalidSignature is returned when a webhook payload fails verification
// against the shared endpoint secret. Always rejected, never retried.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// InvoiceError reports a failed step of the invoice protocol. InvoiceID is
// set once the draft exists so an orphaned invoice can be reconciled.
type InvoiceError struct {
	InvoiceID string
	Step      string
	Err       error
}

func (e *InvoiceError) Error() string {
	if e.InvoiceID == "" {
		return fmt.Sprintf("invoice %s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("invoice %s failed (invoice=%s): %v", e.Step, e.InvoiceID, e.Err)
}

func (e *InvoiceError) Unwrap() error {
	return e.Err
}
