package guard

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
	"github.com/SocialPulseHQ/SocialPulse/app/repository"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
)

// Locals keys set for downstream stages after a request is admitted.
const (
	LocalsPlatform = "WEBHOOK_PLATFORM"
	LocalsConfig   = "WEBHOOK_CONFIG"
	LocalsClientIP = "WEBHOOK_CLIENT_IP"
)

// Admission is the result of a fully verified request: the caller may hand
// the body to the event recorder.
type Admission struct {
	Platform string
	Config   *models.WebhookConfig
	ClientIP string
	Body     []byte
}

// Rejection describes why a request was turned away. It carries the HTTP
// status the platform caller sees and the violation type counted against
// the client identity.
type Rejection struct {
	Status     int
	Code       string
	Reason     string
	Violation  string
	RetryAfter int // seconds, only set for rate-limit rejections
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Reason)
}

func reject(status int, code, reason, violation string) *Rejection {
	return &Rejection{Status: status, Code: code, Reason: reason, Violation: violation}
}

// Guard is the per-request security gate. Every stage can short-circuit
// with a Rejection; no business logic runs before Check succeeds.
type Guard struct {
	cfg        *config.Config
	configs    repository.WebhookConfigRepository
	ranges     *IPRangeManager
	limiter    *RateLimiter
	violations *ViolationTracker
}

// New wires a guard from its collaborators.
func New(cfg *config.Config, configs repository.WebhookConfigRepository) *Guard {
	g := &Guard{
		cfg:        cfg,
		configs:    configs,
		ranges:     NewIPRangeManager(cfg),
		limiter:    NewRateLimiter(cfg),
		violations: NewViolationTracker(cfg),
	}
	// Repeated violations from one client earn a temporary block.
	g.violations.blockIP = g.ranges.BlockIP
	return g
}

// Violations exposes the violation tracker so alerting can subscribe.
func (g *Guard) Violations() *ViolationTracker {
	return g.violations
}

// Check runs the full admission pipeline for an event delivery (POST).
// Stage order: platform → IP allow-list → signature → replay → structure →
// rate limit. The first failing stage terminates the request.
func (g *Guard) Check(c *fiber.Ctx) (*Admission, *Rejection) {
	platform, rej := g.extractPlatform(c)
	if rej != nil {
		g.count(c, "", rej)
		return nil, rej
	}

	clientIP := ClientIP(c)

	if rej := g.checkIPAllowlist(platform, clientIP); rej != nil {
		g.count(c, platform, rej)
		return nil, rej
	}

	body := append([]byte(nil), c.BodyRaw()...)

	webhookCfg, rej := g.verifySignature(c, platform, body)
	if rej != nil {
		g.count(c, platform, rej)
		return nil, rej
	}

	if rej := g.checkReplay(c, platform, webhookCfg); rej != nil {
		g.count(c, platform, rej)
		return nil, rej
	}

	if rej := g.validateStructure(c, body); rej != nil {
		g.count(c, platform, rej)
		return nil, rej
	}

	result, rej := g.limiter.Allow(platform, clientIP)
	if rej != nil {
		g.count(c, platform, rej)
		return nil, rej
	}
	result.SetHeaders(c)

	c.Locals(LocalsPlatform, platform)
	c.Locals(LocalsConfig, webhookCfg)
	c.Locals(LocalsClientIP, clientIP)

	log.Debugf("[Guard] admitted %s delivery from %s (config %d)", platform, clientIP, webhookCfg.ID)
	return &Admission{
		Platform: platform,
		Config:   webhookCfg,
		ClientIP: clientIP,
		Body:     body,
	}, nil
}

// extractPlatform derives the platform from the URL path segment, falling
// back to an explicit header. Fails closed when undeterminable.
func (g *Guard) extractPlatform(c *fiber.Ctx) (string, *Rejection) {
	platform := strings.ToLower(strings.TrimSpace(c.Params("platform")))
	if platform == "" {
		platform = strings.ToLower(strings.TrimSpace(c.Get("X-Webhook-Platform")))
	}
	if platform == "" || !models.IsValidPlatform(platform) {
		return "", reject(fiber.StatusBadRequest, "unknown_platform",
			fmt.Sprintf("unsupported platform %q", platform), ViolationUnknownPlatform)
	}
	return platform, nil
}

func (g *Guard) checkIPAllowlist(platform, clientIP string) *Rejection {
	blocked, err := g.ranges.IsBlocked(clientIP)
	if err != nil {
		log.Errorf("[Guard] blocked-ip lookup failed for %s: %v", clientIP, err)
	}
	if blocked {
		return reject(fiber.StatusForbidden, "ip_blocked",
			"client IP is temporarily blocked", ViolationBlockedIP)
	}

	allowed, err := g.ranges.Allowed(platform, clientIP)
	if err != nil {
		// Allow-list state unavailable: fail open, the signature check is
		// still ahead of us.
		log.Warnf("[Guard] allow-list check unavailable for %s: %v", platform, err)
		return nil
	}
	if !allowed {
		if g.cfg.IPAllowlistStrict {
			return reject(fiber.StatusForbidden, "ip_not_allowed",
				"client IP outside the platform's published ranges", ViolationIPNotAllowed)
		}
		log.Warnf("[Guard] %s delivery from %s outside published ranges (non-strict, continuing)", platform, clientIP)
	}
	return nil
}

// count records the violation behind a rejection and logs it with the
// client identity. Signatures and secrets never appear in these logs.
func (g *Guard) count(c *fiber.Ctx, platform string, rej *Rejection) {
	if platform == "" {
		platform = "unknown"
	}
	ip := ClientIP(c)
	g.violations.Record(rej.Violation, platform, ip)
	log.Infof("[Guard] rejected %s request from %s: %s (%d)", platform, ip, rej.Reason, rej.Status)
}
