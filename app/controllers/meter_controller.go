package controllers

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/seoextraction/extractor-api/internal/pkg/billing"
	"github.com/seoextraction/extractor-api/internal/pkg/env"
	"github.com/seoextraction/extractor-api/internal/pkg/identity"
	"github.com/seoextraction/extractor-api/internal/pkg/quota"
)

type meterActionRequest struct {
	Text         string `json:"text" validate:"required"`
	UserID       string `json:"user_id" validate:"required"`
	IsRegistered bool   `json:"is_registered"`
}

// HandleMeterAction performs a metered keyword extraction. Free-tier callers
// are admitted through the usage counter; registered callers are charged a
// per-character invoice. The billing outcome is decided before the
// extraction call so a rejected request does no third-party work.
func HandleMeterAction(c *fiber.Ctx) error {
	var req meterActionRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "text and user_id are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if req.IsRegistered {
		meta, err := identityClient.GetUser(ctx, req.UserID)
		if err != nil {
			log.Printf("meter-action: metadata fetch failed for %s: %v", req.UserID, err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "metadata_unavailable"})
		}
		if err := chargeRegisteredUser(ctx, meta, req.Text); err != nil {
			return respondChargeError(c, err)
		}
	} else {
		if _, err := usageTracker.Track(ctx, req.UserID, true); err != nil {
			if errors.Is(err, quota.ErrQuotaExceeded) {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error":   "quota_exceeded",
					"message": "Free usage limit reached. Set up a payment method to continue.",
				})
			}
			log.Printf("meter-action: usage tracking failed for %s: %v", req.UserID, err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "usage_tracking_unavailable"})
		}
	}

	keywords, err := extractorClient.ExtractKeywords(ctx, req.Text)
	if err != nil {
		log.Printf("meter-action: extraction failed for %s: %v", req.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "extraction_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "keywords": keywords})
}

// chargeRegisteredUser issues the metered invoice. The billing outcome is
// fully decided before any invoice exists: no linked customer or no default
// payment method means no draft is ever created.
func chargeRegisteredUser(ctx context.Context, meta *identity.Metadata, text string) error {
	if meta.CustomerID == "" {
		return billing.ErrNoPaymentMethod
	}

	resolver := billing.NewResolver(paymentGateway)
	pm, err := resolver.Resolve(ctx, meta.CustomerID)
	if err != nil {
		return err
	}
	if pm == nil {
		return billing.ErrNoPaymentMethod
	}

	amount := billing.ChargeCents(utf8.RuneCountInString(text), chargeRate())
	if amount <= 0 {
		return nil
	}

	issuer := billing.NewIssuer(paymentGateway)
	_, err = issuer.Issue(ctx, meta.CustomerID, "Text extraction service", amount)
	return err
}

func respondChargeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, billing.ErrNoPaymentMethod):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":   "no_payment_method",
			"message": "No valid payment method found. Complete payment setup first.",
		})
	case errors.Is(err, billing.ErrPaymentGateway):
		log.Printf("meter-action: payment gateway fault: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_unavailable"})
	default:
		var invErr *billing.InvoiceError
		if errors.As(err, &invErr) {
			log.Printf("meter-action: invoice protocol failed at %s (invoice=%s): %v", invErr.Step, invErr.InvoiceID, invErr.Err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "charge_failed"})
		}
		log.Printf("meter-action: charge failed: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "charge_failed"})
	}
}

func chargeRate() float64 {
	raw := env.GetEnv("EXTRACTION_RATE_PER_100_CHARS", "")
	if raw == "" {
		return billing.DefaultRatePerHundredChars
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || rate <= 0 {
		return billing.DefaultRatePerHundredChars
	}
	return rate
}
