package guard

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/cache"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
)

const rateLimitKeyPrefix = "rate_limit:"

// RateLimiter enforces four tiers of fixed-window counters per
// (platform, client IP): a 10-second burst window, per-minute, per-hour,
// and a global cross-platform per-minute cap. Counters use atomic
// increment-with-expiry so concurrent requests never undercount.
type RateLimiter struct {
	cfg *config.Config
}

func NewRateLimiter(cfg *config.Config) *RateLimiter {
	return &RateLimiter{cfg: cfg}
}

type limitTier struct {
	name   string
	window time.Duration
	limit  int
	key    string
}

// RateLimitResult carries the remaining quota of the tightest tier so the
// handler can set X-RateLimit-* response headers.
type RateLimitResult struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// SetHeaders writes the rate-limit response headers.
func (r *RateLimitResult) SetHeaders(c *fiber.Ctx) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(r.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(r.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(r.ResetAt.Unix(), 10))
}

func (rl *RateLimiter) tiers(platform, clientIP string) []limitTier {
	identity := platform + ":" + clientIP
	return []limitTier{
		{
			name:   "burst",
			window: 10 * time.Second,
			limit:  rl.cfg.RateLimitBurst10s,
			key:    rateLimitKeyPrefix + "burst:" + identity,
		},
		{
			name:   "minute",
			window: time.Minute,
			limit:  rl.cfg.RateLimitPerMinute,
			key:    rateLimitKeyPrefix + "minute:" + identity,
		},
		{
			name:   "hour",
			window: time.Hour,
			limit:  rl.cfg.RateLimitPerHour,
			key:    rateLimitKeyPrefix + "hour:" + identity,
		},
		{
			name:   "global",
			window: time.Minute,
			limit:  rl.cfg.RateLimitGlobalMin,
			key:    rateLimitKeyPrefix + "global:minute",
		},
	}
}

// Allow increments every tier and rejects on the first breach. The 429
// carries Retry-After set to the breached tier's window length.
func (rl *RateLimiter) Allow(platform, clientIP string) (*RateLimitResult, *Rejection) {
	// ResetAt starts at a full window ahead so the reset header stays sane
	// even when the counter store is down and the loop never reaches the
	// minute tier.
	result := &RateLimitResult{
		Limit:     rl.cfg.RateLimitPerMinute,
		Remaining: rl.cfg.RateLimitPerMinute,
		ResetAt:   time.Now().Add(time.Minute),
	}

	for _, tier := range rl.tiers(platform, clientIP) {
		count, err := cache.IncrWithTTL(tier.key, tier.window)
		if err != nil {
			// Counter store down: let the request through, the remaining
			// guard stages already authenticated it.
			log.Errorf("[Guard] rate-limit counter unavailable (%s): %v", tier.name, err)
			continue
		}
		if count > int64(tier.limit) {
			rej := reject(fiber.StatusTooManyRequests, "rate_limited",
				fmt.Sprintf("%s tier limit of %d exceeded", tier.name, tier.limit),
				ViolationRateLimited)
			rej.RetryAfter = int(tier.window.Seconds())
			return nil, rej
		}
		if tier.name == "minute" {
			remaining := tier.limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			result.Limit = tier.limit
			result.Remaining = remaining
			ttl, terr := cache.TTL(tier.key)
			if terr != nil || ttl < 0 {
				ttl = tier.window
			}
			result.ResetAt = time.Now().Add(ttl)
		}
	}
	return result, nil
}
