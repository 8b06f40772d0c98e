package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/seoextraction/extractor-api/internal/pkg/quota"
	"github.com/seoextraction/extractor-api/internal/pkg/stats"
)

type usageMetadataRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	TrackUsage *bool  `json:"track_usage"`
}

// HandleUsageMetadata returns the caller's registration flag and usage
// count, advancing the counter unless track_usage is explicitly false. One
// identity read serves both answers.
func HandleUsageMetadata(c *fiber.Ctx) error {
	var req usageMetadataRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "user_id is required")
	}
	trackUsage := req.TrackUsage == nil || *req.TrackUsage

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	meta, err := usageTracker.Track(ctx, req.UserID, trackUsage)
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":         "quota_exceeded",
				"message":       "Free usage limit reached.",
				"is_registered": meta.IsRegistered,
				"usage_count":   meta.UsageCount,
				"usage_limit":   usageTracker.Limit(),
			})
		}
		log.Printf("usage-metadata: usage tracking failed for %s: %v", req.UserID, err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "usage_tracking_unavailable"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"is_registered": meta.IsRegistered,
		"usage_count":   meta.UsageCount,
		"usage_limit":   usageTracker.Limit(),
	})
}

// HandleUserCount reports how many users completed payment setup and whether
// the registration cap is reached.
func HandleUserCount(c *fiber.Ctx) error {
	count, err := stats.GetUserCount()
	if err != nil {
		log.Printf("user-count: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "user_count_unavailable"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":       true,
		"user_count":    count,
		"limit_reached": count >= stats.RegisteredUserLimit,
	})
}
