package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/seoextraction/extractor-api/app/controllers"
	"github.com/seoextraction/extractor-api/internal/pkg/cache"
	"github.com/seoextraction/extractor-api/internal/pkg/env"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: env.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:4200"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "extractor api",
		})
	})

	// The metered extraction endpoint carries the per-client rate limit;
	// webhook and lookup routes stay unthrottled so the processor is never
	// rejected by our own limiter.
	app.Post("/meter-action", newMeterLimiter(), controllers.HandleMeterAction)

	app.Post("/usage-metadata", controllers.HandleUsageMetadata)
	app.Get("/user-count", controllers.HandleUserCount)

	app.Get("/payment-method", controllers.HandleGetPaymentMethod)
	app.Post("/create-customer", controllers.HandleCreateCustomer)
	app.Post("/create-payment-intent", controllers.HandleCreatePaymentIntent)
	app.Post("/setup-payment-session", controllers.HandleSetupPaymentSession)
	app.Get("/subscription-status/:customerId", controllers.HandleSubscriptionStatus)

	app.Post("/webhook", controllers.HandleWebhook)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

// newMeterLimiter builds the 100 requests per hour limiter backed by the
// shared redis instance so the limit holds across replicas.
func newMeterLimiter() fiber.Handler {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	// Database 1 keeps limiter counters apart from the cache (DB 0).
	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
	})

	return limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Hour,
		Storage:    storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests, please try again later.",
			})
		},
	})
}
