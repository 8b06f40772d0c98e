package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/seoextraction/extractor-api/app/repository"
	"github.com/seoextraction/extractor-api/internal/pkg/billing"
	"github.com/seoextraction/extractor-api/internal/pkg/database"
	"github.com/seoextraction/extractor-api/internal/pkg/stats"
)

// HandleWebhook receives processor events. Signature failures are the only
// rejection; downstream processing faults are recorded on the event ledger
// and acknowledged so processor retries cannot pile up on our own faults.
func HandleWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")

	db := database.GetDB()
	reconciler := billing.NewReconciler(
		paymentGateway,
		identityClient,
		repository.NewUserRepository(db),
		billing.NewRepository(db),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	receipt, err := reconciler.Process(ctx, rawBody, signature)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}

	if receipt.EventType == "payment_method.attached" && !receipt.Duplicate && !receipt.Ignored {
		stats.InvalidateUserCount()
	}
	if receipt.Duplicate {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}
