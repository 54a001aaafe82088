package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/cache"
)

const replayKeyPrefix = "replay:"

// checkReplay rejects requests whose timestamp is outside the tolerance
// window and requests whose exact signature was already accepted within the
// replay window. The second check is independent of the first: a captured
// request replayed with a fresh connection still carries the old signature.
func (g *Guard) checkReplay(c *fiber.Ctx, platform string, webhookCfg *models.WebhookConfig) *Rejection {
	if ts := requestTimestamp(c, platform); ts != nil {
		drift := time.Since(*ts)
		if math.Abs(drift.Seconds()) > g.cfg.TimestampTolerance.Seconds() {
			return reject(fiber.StatusUnauthorized, "stale_timestamp",
				fmt.Sprintf("request timestamp outside %s tolerance", g.cfg.TimestampTolerance),
				ViolationReplay)
		}
	}

	sig := strings.TrimSpace(c.Get(SignatureHeaderName(platform)))
	if sig == "" {
		return nil
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", sig, webhookCfg.ID)))
	key := replayKeyPrefix + hex.EncodeToString(sum[:])
	fresh, err := cache.SetNX(key, 1, g.cfg.ReplayWindow)
	if err != nil {
		// Replay store unavailable; log and continue rather than drop
		// legitimate deliveries.
		log.Errorf("[Guard] replay store unavailable: %v", err)
		return nil
	}
	if !fresh {
		return reject(fiber.StatusUnauthorized, "replayed_signature",
			"signature already seen within the replay window", ViolationReplay)
	}
	return nil
}

// requestTimestamp extracts the delivery timestamp header when the platform
// sends one. Only LinkedIn carries a dedicated timestamp header; the others
// may send X-Webhook-Timestamp from test harnesses.
func requestTimestamp(c *fiber.Ctx, platform string) *time.Time {
	var raw string
	if platform == string(models.PlatformLinkedIn) {
		raw = strings.TrimSpace(c.Get(HeaderLinkedInTime))
	}
	if raw == "" {
		raw = strings.TrimSpace(c.Get("X-Webhook-Timestamp"))
	}
	if raw == "" {
		return nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	var t time.Time
	if n > 1e12 { // milliseconds
		t = time.UnixMilli(n)
	} else {
		t = time.Unix(n, 0)
	}
	return &t
}
