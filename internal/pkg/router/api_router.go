package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SocialPulseHQ/SocialPulse/app/controllers"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/middleware"
)

type ApiRouter struct {
	cfg *config.Config
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "SocialPulse webhook API",
		})
	})

	// Webhook ingestion. The optional config id pins a delivery to one
	// subscription when an account runs several per platform.
	api.Get("/webhooks/:platform", controllers.HandleWebhookChallenge)
	api.Post("/webhooks/:platform", controllers.HandleWebhookIngest)
	api.Get("/webhooks/:platform/:config_id", controllers.HandleWebhookChallenge)
	api.Post("/webhooks/:platform/:config_id", controllers.HandleWebhookIngest)

	// Subscription management, admin API key required
	admin := api.Group("/webhook-configs", middleware.APIKeyAuth(h.cfg.AdminAPIKey))
	admin.Post("/", controllers.HandleCreateWebhookConfig)
	admin.Put("/:id/rotate-secret", controllers.HandleRotateWebhookSecret)
	admin.Delete("/:id", controllers.HandleDeactivateWebhookConfig)

	// Event inspection, same admin key
	api.Get("/events", middleware.APIKeyAuth(h.cfg.AdminAPIKey), controllers.HandleListEvents)

	// Operations
	api.Get("/health", controllers.HandleHealth)
	api.Get("/health/checks", controllers.HandleHealthChecks)
	api.Get("/queue/stats", controllers.HandleQueueStats)
	api.Get("/stats", controllers.HandleIngestionStats)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/status", monitor.New())
}

func NewApiRouter(cfg *config.Config) *ApiRouter {
	return &ApiRouter{cfg: cfg}
}
