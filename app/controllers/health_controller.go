package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
	"github.com/SocialPulseHQ/SocialPulse/app/repository"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/monitoring"
)

// HandleHealth serves the latest health snapshot. Unhealthy reports as
// 503 so load balancers can act on the plain status code.
func HandleHealth(c *fiber.Ctx) error {
	snap := healthMonitor.Current()
	status := fiber.StatusOK
	if snap.Status == monitoring.StatusUnhealthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(snap)
}

// HandleHealthChecks serves the individual check results of the latest
// monitor run, for dashboards that want more than the aggregate status.
func HandleHealthChecks(c *fiber.Ctx) error {
	snap := healthMonitor.Current()
	return c.JSON(fiber.Map{
		"status": snap.Status, "checks": snap.Checks, "checked_at": snap.CheckedAt,
	})
}

// HandleIngestionStats reports event counts for the last 24 hours broken
// down by terminal status, plus the failure count of the last hour as a
// quick problem indicator.
func HandleIngestionStats(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetWebhookEventRepository()
	since := time.Now().Add(-24 * time.Hour)

	counts := fiber.Map{}
	for _, status := range []string{"", "pending", "processing", "processed", "ignored", "failed"} {
		n, err := repo.CountSince(since, status)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status": "error", "message": "stats unavailable",
			})
		}
		label := status
		if label == "" {
			label = "total"
		}
		counts[label] = n
	}

	failedLastHour, err := repo.CountFailedSince(time.Now().Add(-time.Hour))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": "error", "message": "stats unavailable",
		})
	}
	return c.JSON(fiber.Map{
		"status": "ok", "since": since, "events": counts, "failed_last_hour": failedLastHour,
	})
}

// HandleListEvents lists recent events for one platform, newest first.
// Admin surface for inspecting what a provider actually delivered.
func HandleListEvents(c *fiber.Ctx) error {
	platform := c.Query("platform")
	if !models.IsValidPlatform(platform) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error", "message": "unknown or missing platform",
		})
	}

	hours := c.QueryInt("hours", 24)
	if hours < 1 || hours > 24*7 {
		hours = 24
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	events, err := repository.GetGlobalFactory().GetWebhookEventRepository().
		ListByPlatform(platform, since, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": "error", "message": "events unavailable",
		})
	}
	return c.JSON(fiber.Map{
		"status": "ok", "since": since, "count": len(events), "events": events,
	})
}
