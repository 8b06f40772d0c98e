package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/seoextraction/extractor-api/internal/pkg/billing"
	"github.com/seoextraction/extractor-api/internal/pkg/env"
)

// HandleGetPaymentMethod returns the customer's default payment method, or
// null when none is configured yet.
func HandleGetPaymentMethod(c *fiber.Ctx) error {
	customerID := strings.TrimSpace(c.Query("customer_id"))
	if customerID == "" {
		return badRequest(c, "customer_id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pm, err := billing.NewResolver(paymentGateway).Resolve(ctx, customerID)
	if err != nil {
		log.Printf("payment-method: resolve failed for %s: %v", customerID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_unavailable"})
	}
	if pm == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"default_payment_method": nil})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"default_payment_method": fiber.Map{
		"id":    pm.ID,
		"type":  pm.Type,
		"brand": pm.Brand,
		"last4": pm.Last4,
	}})
}

type createCustomerRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

// HandleCreateCustomer creates a processor customer for the given contact.
func HandleCreateCustomer(c *fiber.Ctx) error {
	var req createCustomerRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "email and name are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	customerID, err := paymentGateway.CreateCustomer(ctx, req.Email, req.Name)
	if err != nil {
		log.Printf("create-customer: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_unavailable"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"customer_id": customerID})
}

type createPaymentIntentRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

// HandleCreatePaymentIntent creates a one-off payment intent and returns its
// client secret for the frontend confirmation flow.
func HandleCreatePaymentIntent(c *fiber.Ctx) error {
	var req createPaymentIntentRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "amount_cents must be a positive integer")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	clientSecret, err := paymentGateway.CreatePaymentIntent(ctx, req.AmountCents)
	if err != nil {
		log.Printf("create-payment-intent: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_unavailable"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"client_secret": clientSecret})
}

type setupPaymentSessionRequest struct {
	CustomerID string `json:"customer_id"`
	User       struct {
		Sub   string `json:"sub" validate:"required"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user" validate:"required"`
}

// HandleSetupPaymentSession starts a setup-mode checkout session, creating a
// processor customer first when the caller has none. The new customer id is
// persisted into identity metadata before the session is created so the
// later webhook can find the owning user by reverse lookup.
func HandleSetupPaymentSession(c *fiber.Ctx) error {
	var req setupPaymentSessionRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "user.sub is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		meta, err := identityClient.GetUser(ctx, req.User.Sub)
		if err != nil {
			log.Printf("setup-payment-session: metadata fetch failed for %s: %v", req.User.Sub, err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "metadata_unavailable"})
		}
		customerID = meta.CustomerID
	}

	if customerID == "" {
		id, err := paymentGateway.CreateCustomer(ctx, req.User.Email, req.User.Name)
		if err != nil {
			log.Printf("setup-payment-session: customer creation failed: %v", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_unavailable"})
		}
		if err := identityClient.SetCustomerID(ctx, req.User.Sub, id); err != nil {
			// Without the linkage the webhook reverse lookup will miss this
			// user; fail the setup rather than strand the new customer.
			log.Printf("setup-payment-session: failed to link customer %s to %s: %v", id, req.User.Sub, err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "metadata_unavailable"})
		}
		customerID = id
	}

	frontendURL := strings.TrimRight(env.GetEnv("FRONTEND_URL", "http://localhost:4200"), "/")
	sessionID, err := paymentGateway.CreateSetupSession(ctx, customerID, frontendURL+"/success", frontendURL+"/cancel")
	if err != nil {
		log.Printf("setup-payment-session: session creation failed for %s: %v", customerID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_unavailable"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"session_id": sessionID})
}

// HandleSubscriptionStatus checks whether the customer has an active
// subscription on the processor.
func HandleSubscriptionStatus(c *fiber.Ctx) error {
	customerID := strings.TrimSpace(c.Params("customerId"))
	if customerID == "" {
		return badRequest(c, "customer id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	count, err := paymentGateway.CountActiveSubscriptions(ctx, customerID)
	if err != nil {
		log.Printf("subscription-status: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_unavailable"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"registered": count > 0})
}
