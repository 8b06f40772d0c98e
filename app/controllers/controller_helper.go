package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/seoextraction/extractor-api/internal/pkg/billing"
	"github.com/seoextraction/extractor-api/internal/pkg/extractor"
	"github.com/seoextraction/extractor-api/internal/pkg/identity"
	"github.com/seoextraction/extractor-api/internal/pkg/quota"
)

var (
	identityClient  *identity.Client
	paymentGateway  billing.Gateway
	usageTracker    *quota.Tracker
	extractorClient *extractor.Client

	validate = validator.New()
)

// Setup wires the process-wide collaborators. Called once from main after
// the environment is loaded.
func Setup() {
	identityClient = identity.NewClientFromEnv()
	paymentGateway = billing.NewStripeGatewayFromEnv()
	usageTracker = quota.NewTracker(identityClient, quota.DefaultLimit)
	extractorClient = extractor.NewClientFromEnv()
}

// parseBody decodes and validates a JSON request body.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return err
	}
	return validate.Struct(out)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}
