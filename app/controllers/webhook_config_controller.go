package controllers

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
	"github.com/SocialPulseHQ/SocialPulse/app/repository"
)

var validate = validator.New()

type createWebhookConfigRequest struct {
	SocialAccountID uint     `json:"social_account_id" validate:"required"`
	Platform        string   `json:"platform" validate:"required,oneof=facebook instagram twitter linkedin"`
	VerifyToken     string   `json:"verify_token"`
	Events          []string `json:"events"`
}

// HandleCreateWebhookConfig registers a webhook subscription and returns
// the generated shared secret. The secret is shown exactly once; it is
// never included in later reads.
func HandleCreateWebhookConfig(c *fiber.Ctx) error {
	var req createWebhookConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error", "message": "invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"status": "error", "message": err.Error(),
		})
	}

	events := req.Events
	if len(events) == 0 {
		events = appConfig.SubscribedDefault
	}

	cfg := &models.WebhookConfig{
		SocialAccountID: req.SocialAccountID,
		Platform:        req.Platform,
		Secret:          newSecret(),
		VerifyToken:     req.VerifyToken,
		Active:          true,
	}
	cfg.SetSubscribedEvents(events)

	if err := repository.GetGlobalFactory().GetWebhookConfigRepository().Create(cfg); err != nil {
		log.Errorf("[WebhookConfig] create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": "error", "message": "config could not be created",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "ok",
		"id":      cfg.ID,
		"secret":  cfg.Secret,
		"events":  cfg.SubscribedEvents(),
		"message": "store the secret now, it is not retrievable later",
	})
}

// HandleRotateWebhookSecret replaces the shared secret for a config.
// Deliveries signed with the old secret stop verifying immediately.
func HandleRotateWebhookSecret(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error", "message": "invalid config id",
		})
	}

	repo := repository.GetGlobalFactory().GetWebhookConfigRepository()
	if _, err := repo.GetByID(uint(id)); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status": "error", "message": "config not found",
		})
	}

	secret := newSecret()
	if err := repo.RotateSecret(uint(id), secret); err != nil {
		log.Errorf("[WebhookConfig] rotate failed for config %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": "error", "message": "secret rotation failed",
		})
	}

	return c.JSON(fiber.Map{"status": "ok", "id": id, "secret": secret})
}

// HandleDeactivateWebhookConfig turns a subscription off. Deliveries for
// it start failing config lookup with 404.
func HandleDeactivateWebhookConfig(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error", "message": "invalid config id",
		})
	}
	if err := repository.GetGlobalFactory().GetWebhookConfigRepository().Deactivate(uint(id)); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status": "error", "message": "config not found",
		})
	}
	return c.JSON(fiber.Map{"status": "ok", "id": id})
}

func newSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
