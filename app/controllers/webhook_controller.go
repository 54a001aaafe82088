package controllers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
	"github.com/SocialPulseHQ/SocialPulse/app/repository"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/guard"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/jobqueue"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/metrics"
)

// HandleWebhookChallenge answers the platform's endpoint-ownership probe
// (GET). Challenges bypass signature verification but never reach any
// business logic; the response format is platform specific.
func HandleWebhookChallenge(c *fiber.Ctx) error {
	platform := c.Params("platform")
	if !models.IsValidPlatform(platform) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error", "message": fmt.Sprintf("unsupported platform %q", platform),
		})
	}

	cfg, err := repository.GetGlobalFactory().GetWebhookConfigRepository().FirstActiveForPlatform(platform)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status": "error", "message": "no active webhook configuration",
		})
	}

	switch platform {
	case string(models.PlatformFacebook), string(models.PlatformInstagram):
		if c.Query("hub.mode") != "subscribe" || c.Query("hub.verify_token") != cfg.VerifyToken {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status": "error", "message": "verify token mismatch",
			})
		}
		return c.SendString(c.Query("hub.challenge"))

	case string(models.PlatformTwitter):
		crcToken := c.Query("crc_token")
		if crcToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status": "error", "message": "crc_token missing",
			})
		}
		return c.JSON(fiber.Map{
			"response_token": guard.TwitterCRCResponse(crcToken, cfg.Secret),
		})

	case string(models.PlatformLinkedIn):
		challenge := c.Query("challengeCode")
		if challenge == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status": "error", "message": "challengeCode missing",
			})
		}
		return c.JSON(fiber.Map{
			"challengeCode":     challenge,
			"challengeResponse": guard.LinkedInChallengeResponse(challenge, cfg.Secret),
		})
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status": "error", "message": "unsupported platform",
	})
}

// HandleWebhookIngest is the event delivery entrypoint (POST). The guard
// admits or rejects; admitted deliveries are persisted synchronously and
// handed to the queue, so the platform gets its acknowledgement within
// its delivery timeout regardless of processing cost.
func HandleWebhookIngest(c *fiber.Ctx) error {
	started := time.Now()

	// Every inbound delivery counts as a request, admitted or not, so the
	// error rate stays meaningful during a pure rejection flood.
	collector.Record(metrics.TypeRequest, map[string]string{"platform": c.Params("platform")}, 1)
	defer func() {
		collector.Record(metrics.TypeResponseTimeMS, map[string]string{"platform": c.Params("platform")},
			float64(time.Since(started).Milliseconds()))
	}()

	admission, rej := requestGuard.Check(c)
	if rej != nil {
		collector.Record(metrics.TypeRejected, map[string]string{
			"platform": c.Params("platform"), "reason": rej.Code,
		}, 1)
		if rej.RetryAfter > 0 {
			c.Set("Retry-After", strconv.Itoa(rej.RetryAfter))
		}
		return c.Status(rej.Status).JSON(fiber.Map{
			"status": "error", "message": rej.Reason, "code": rej.Code,
		})
	}

	accountID := admission.Config.SocialAccountID
	event := &models.WebhookEvent{
		Platform:        admission.Platform,
		EventID:         deliveryIdentity(admission.Platform, admission.Body),
		EventType:       deliveryEventType(admission.Platform, admission.Body),
		SocialAccountID: &accountID,
		RawPayload:      string(admission.Body),
		Status:          models.EventStatusPending,
		ReceivedAt:      started,
	}

	created, stored, err := repository.GetGlobalFactory().GetWebhookEventRepository().CreateIfNotExists(event)
	if err != nil {
		log.Errorf("[Webhook] persist failed for %s delivery: %v", admission.Platform, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": "error", "message": "event could not be recorded",
		})
	}

	if !created {
		// Exact redelivery of an already recorded event; the original is
		// being handled, acknowledge without enqueueing twice.
		return c.JSON(fiber.Map{
			"status": "ok", "message": "duplicate delivery", "event_id": stored.ID,
		})
	}

	if appConfig.ProcessInline {
		outcome := processor.Process(c.Context(), stored.ID)
		return c.JSON(fiber.Map{
			"status": "ok", "message": "processed", "event_id": stored.ID, "outcome": outcome.Kind,
		})
	}

	if _, err := jobqueue.GetManager().GetQueue().EnqueueWebhookEvent(stored.ID, stored.Platform); err != nil {
		// The event is durable; the recovery worker will pick it up.
		log.Errorf("[Webhook] enqueue failed for event %d: %v", stored.ID, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "ok", "message": "accepted", "event_id": stored.ID,
	})
}

// HandleQueueStats reports job queue statistics.
func HandleQueueStats(c *fiber.Ctx) error {
	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	stats, err := queue.GetJobStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": "error", "message": "queue stats unavailable",
		})
	}
	pending, _ := queue.GetQueueSize(c.Context())
	processing, _ := queue.GetProcessingSize(c.Context())
	return c.JSON(fiber.Map{
		"status":     "ok",
		"pending":    pending,
		"processing": processing,
		"stats":      stats,
	})
}

// deliveryIdentity derives a stable identifier for one delivery so exact
// redeliveries collapse onto the same stored event. Platforms that carry
// an explicit identifier use it; otherwise the body digest serves. Meta
// batches carry only page id and second resolution, which two distinct
// events can share, so the body digest is folded in alongside them.
func deliveryIdentity(platform string, body []byte) string {
	sum := sha256.Sum256(body)
	digest := hex.EncodeToString(sum[:])

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		switch platform {
		case string(models.PlatformFacebook), string(models.PlatformInstagram):
			if entries, ok := payload["entry"].([]any); ok && len(entries) > 0 {
				if entry, ok := entries[0].(map[string]any); ok {
					id, _ := entry["id"].(string)
					if t, ok := entry["time"].(float64); ok && id != "" {
						return fmt.Sprintf("%s:%d:%s", id, int64(t), digest[:16])
					}
				}
			}
		case string(models.PlatformLinkedIn):
			if id, ok := payload["eventId"].(string); ok && id != "" {
				return id
			}
		}
	}
	return digest
}

// deliveryEventType pulls a coarse event type out of the raw payload for
// indexing. The normalizers do the real classification later.
func deliveryEventType(platform string, body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch platform {
	case string(models.PlatformFacebook), string(models.PlatformInstagram):
		if object, ok := payload["object"].(string); ok {
			return object
		}
	case string(models.PlatformTwitter):
		for _, key := range []string{
			"tweet_create_events", "favorite_events", "direct_message_events",
			"follow_events", "tweet_delete_events",
		} {
			if _, ok := payload[key]; ok {
				return key
			}
		}
	case string(models.PlatformLinkedIn):
		if eventType, ok := payload["eventType"].(string); ok {
			return eventType
		}
	}
	return ""
}
