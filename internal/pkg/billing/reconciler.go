package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v82"

	"github.com/seoextraction/extractor-api/app/models"
	"github.com/seoextraction/extractor-api/internal/pkg/identity"
)

// IdentityDirectory is the slice of the identity client the reconciler needs.
type IdentityDirectory interface {
	FindUserByCustomerID(ctx context.Context, customerID string) (string, error)
	MarkRegistered(ctx context.Context, userID string) error
}

// UserStore is the local mirror of users with confirmed payment setup.
type UserStore interface {
	Upsert(authSub string) error
}

// Reconciler verifies and dispatches asynchronous processor events, keeping
// the identity store, the processor and the local user table consistent. It
// is the only writer of the registration flag and the default-payment-method
// linkage.
type Reconciler struct {
	gateway  Gateway
	identity IdentityDirectory
	users    UserStore
	ledger   Repository
}

// NewReconciler wires a reconciler from its collaborators.
func NewReconciler(gateway Gateway, directory IdentityDirectory, users UserStore, ledger Repository) *Reconciler {
	return &Reconciler{gateway: gateway, identity: directory, users: users, ledger: ledger}
}

// Process handles one webhook delivery. It returns ErrInvalidSignature when
// verification fails and a ledger error when the dedupe record cannot be
// written (the processor should retry in both cases). Processing faults for
// recognized events are recorded on the ledger row and logged, but the
// delivery is still acknowledged so processor retries cannot pile up on our
// own downstream faults.
func (r *Reconciler) Process(ctx context.Context, payload []byte, signatureHeader string) (*Receipt, error) {
	event, sigErr := r.gateway.ParseWebhookEvent(payload, signatureHeader)

	created, stored, err := r.recordEvent(event, payload, sigErr == nil)
	if err != nil {
		return nil, fmt.Errorf("webhook ledger write failed: %w", err)
	}

	receipt := &Receipt{EventID: stored.ProviderEventID, EventType: stored.EventType}
	if sigErr != nil {
		// Verification runs on every delivery; a replayed forged payload is
		// rejected again, never acknowledged as a duplicate.
		if created {
			_ = r.ledger.MarkWebhookProcessed(stored.ID, sigErr.Error())
		}
		return receipt, sigErr
	}
	if !created {
		// Replayed delivery: the first one already applied (or is applying)
		// every state change.
		receipt.Duplicate = true
		return receipt, nil
	}

	procErr := r.dispatch(ctx, event, receipt)
	procMsg := ""
	if procErr != nil {
		procMsg = procErr.Error()
		log.Printf("billing: webhook %s (%s) processing failed: %v", stored.ProviderEventID, event.Type, procErr)
	}
	if err := r.ledger.MarkWebhookProcessed(stored.ID, procMsg); err != nil {
		log.Printf("billing: failed to mark webhook %s processed: %v", stored.ProviderEventID, err)
	}
	return receipt, nil
}

func (r *Reconciler) recordEvent(event stripe.Event, payload []byte, signatureValid bool) (bool, *models.BillingWebhookEvent, error) {
	eventID := event.ID
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	return r.ledger.CreateWebhookEventIfNotExists(&models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: eventID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
		SignatureValid:  signatureValid,
	})
}

func (r *Reconciler) dispatch(ctx context.Context, event stripe.Event, receipt *Receipt) error {
	switch event.Type {
	case "payment_method.attached":
		var pm stripe.PaymentMethod
		if err := json.Unmarshal(event.Data.Raw, &pm); err != nil {
			return fmt.Errorf("failed to parse payment_method.attached: %w", err)
		}
		if pm.Customer == nil || pm.Customer.ID == "" {
			return errors.New("payment_method.attached carries no customer id")
		}
		return r.handlePaymentMethodAttached(ctx, pm.Customer.ID, pm.ID, receipt)

	case "setup_intent.succeeded":
		var si stripe.SetupIntent
		if err := json.Unmarshal(event.Data.Raw, &si); err != nil {
			return fmt.Errorf("failed to parse setup_intent.succeeded: %w", err)
		}
		if si.Customer == nil || si.Customer.ID == "" {
			return errors.New("setup_intent.succeeded carries no customer id")
		}
		return r.handleSetupIntentSucceeded(ctx, si.Customer.ID, receipt)

	case "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("failed to parse invoice.payment_succeeded: %w", err)
		}
		log.Printf("billing: payment for invoice %s succeeded", inv.ID)
		return nil

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("failed to parse invoice.payment_failed: %w", err)
		}
		// Extension point: dunning / retry handling is not a state
		// transition yet. Observed and acknowledged.
		log.Printf("billing: payment for invoice %s failed", inv.ID)
		return nil

	default:
		log.Printf("billing: ignoring webhook event type %s", event.Type)
		receipt.Ignored = true
		return nil
	}
}

// handlePaymentMethodAttached flips the registration flag, mirrors the user
// locally and makes the attached instrument the customer's default. The
// three writes are not transactional; the identity flag goes first because
// the mirror upsert is idempotent and harmless to retry, and setting the
// default payment method commutes with both.
func (r *Reconciler) handlePaymentMethodAttached(ctx context.Context, customerID, paymentMethodID string, receipt *Receipt) error {
	userID, err := r.identity.FindUserByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			// Terminal for this event: nothing to reconcile against.
			log.Printf("billing: no identity user linked to customer %s, dropping event", customerID)
			receipt.Ignored = true
			return nil
		}
		return err
	}

	if err := r.identity.MarkRegistered(ctx, userID); err != nil {
		return fmt.Errorf("mark registered for %s: %w", userID, err)
	}
	if err := r.users.Upsert(userID); err != nil {
		return fmt.Errorf("upsert local user %s: %w", userID, err)
	}
	if err := r.gateway.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
		return fmt.Errorf("set default payment method for %s: %w", customerID, err)
	}

	log.Printf("billing: user %s registered, payment method %s set as default", userID, paymentMethodID)
	return nil
}

func (r *Reconciler) handleSetupIntentSucceeded(ctx context.Context, customerID string, receipt *Receipt) error {
	userID, err := r.identity.FindUserByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			log.Printf("billing: no identity user linked to customer %s, dropping event", customerID)
			receipt.Ignored = true
			return nil
		}
		return err
	}

	if err := r.identity.MarkRegistered(ctx, userID); err != nil {
		return fmt.Errorf("mark registered for %s: %w", userID, err)
	}
	log.Printf("billing: user %s registered via setup intent", userID)
	return nil
}
