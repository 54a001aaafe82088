package guard

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/cache"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
)

// Violation types counted per (type, platform, client IP).
const (
	ViolationUnknownPlatform  = "unknown_platform"
	ViolationBlockedIP        = "blocked_ip"
	ViolationIPNotAllowed     = "ip_not_allowed"
	ViolationNoConfig         = "no_config"
	ViolationBadSignature     = "bad_signature"
	ViolationReplay           = "replay"
	ViolationMalformedPayload = "malformed_payload"
	ViolationInjection        = "injection_attempt"
	ViolationRateLimited      = "rate_limited"
)

const (
	violationKeyPrefix = "violation:"
	violationWindow    = time.Hour

	// Log-level escalation thresholds within one window.
	escalateWarnAt  = 5
	escalateErrorAt = 20
)

// ThresholdFunc is invoked when a violation counter crosses the alert
// threshold within its window. Wired to the alert evaluator at startup.
type ThresholdFunc func(violationType, platform, clientIP string, count int64)

// ViolationTracker keeps sliding security-violation counters in the cache
// and escalates log level as counts rise. Crossing the configured spike
// threshold triggers the alert callback and a temporary IP block.
type ViolationTracker struct {
	cfg      *config.Config
	onSpike  ThresholdFunc
	onRecord func(violationType, platform string)
	blockIP  func(clientIP string, ttl time.Duration) error
}

func NewViolationTracker(cfg *config.Config) *ViolationTracker {
	return &ViolationTracker{cfg: cfg}
}

// OnSpike registers the alert callback.
func (t *ViolationTracker) OnSpike(fn ThresholdFunc) {
	t.onSpike = fn
}

// OnRecord registers a per-violation observer, used to feed the metrics
// collector.
func (t *ViolationTracker) OnRecord(fn func(violationType, platform string)) {
	t.onRecord = fn
}

// Record increments the counter for one violation and handles escalation.
func (t *ViolationTracker) Record(violationType, platform, clientIP string) {
	if violationType == "" {
		return
	}
	if t.onRecord != nil {
		t.onRecord(violationType, platform)
	}
	key := fmt.Sprintf("%s%s:%s:%s", violationKeyPrefix, violationType, platform, clientIP)
	count, err := cache.IncrWithTTL(key, violationWindow)
	if err != nil {
		log.Errorf("[Guard] violation counter unavailable: %v", err)
		return
	}

	msg := fmt.Sprintf("[Guard] violation %s by %s on %s (count %d in window)",
		violationType, clientIP, platform, count)
	switch {
	case count >= escalateErrorAt:
		log.Error(msg)
	case count >= escalateWarnAt:
		log.Warn(msg)
	default:
		log.Info(msg)
	}

	if count == t.cfg.ViolationSpikeLimit {
		if t.blockIP != nil {
			if berr := t.blockIP(clientIP, violationWindow); berr != nil {
				log.Errorf("[Guard] failed to block %s after violation spike: %v", clientIP, berr)
			} else {
				log.Errorf("[Guard] blocked %s for %s after %d %s violations",
					clientIP, violationWindow, count, violationType)
			}
		}
		if t.onSpike != nil {
			t.onSpike(violationType, platform, clientIP, count)
		}
	}
}
