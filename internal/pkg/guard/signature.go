package guard

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
)

// Signature header per platform. Facebook and Instagram share the Meta
// hex-digest scheme; Twitter uses a base64 digest; LinkedIn signs a
// composite of timestamp, nonce and body.
const (
	HeaderMetaSignature    = "X-Hub-Signature-256"
	HeaderTwitterSignature = "X-Twitter-Webhooks-Signature"
	HeaderLinkedInSig      = "X-LI-Signature"
	HeaderLinkedInTime     = "X-LI-Timestamp"
	HeaderLinkedInNonce    = "X-LI-Nonce"
)

// SignatureHeaderName returns the header carrying the signature for a platform.
func SignatureHeaderName(platform string) string {
	switch platform {
	case string(models.PlatformTwitter):
		return HeaderTwitterSignature
	case string(models.PlatformLinkedIn):
		return HeaderLinkedInSig
	default:
		return HeaderMetaSignature
	}
}

// verifySignature looks up the webhook config for the platform and checks
// the request signature with the platform's algorithm. Missing header is a
// 401, missing config a 404.
func (g *Guard) verifySignature(c *fiber.Ctx, platform string, body []byte) (*models.WebhookConfig, *Rejection) {
	webhookCfg, err := g.lookupConfig(c, platform)
	if err != nil {
		return nil, reject(fiber.StatusNotFound, "no_webhook_config",
			"no active webhook configuration for platform", ViolationNoConfig)
	}

	sigHeader := strings.TrimSpace(c.Get(SignatureHeaderName(platform)))
	if sigHeader == "" {
		return nil, reject(fiber.StatusUnauthorized, "missing_signature",
			"signature header missing", ViolationBadSignature)
	}

	var valid bool
	switch platform {
	case string(models.PlatformFacebook), string(models.PlatformInstagram):
		valid = VerifyMetaSignature(body, sigHeader, webhookCfg.Secret)
	case string(models.PlatformTwitter):
		valid = VerifyTwitterSignature(body, sigHeader, webhookCfg.Secret)
	case string(models.PlatformLinkedIn):
		timestamp := strings.TrimSpace(c.Get(HeaderLinkedInTime))
		nonce := strings.TrimSpace(c.Get(HeaderLinkedInNonce))
		if timestamp == "" || nonce == "" {
			return nil, reject(fiber.StatusUnauthorized, "missing_signature_context",
				"timestamp and nonce headers required", ViolationBadSignature)
		}
		valid = VerifyLinkedInSignature(body, sigHeader, timestamp, nonce, webhookCfg.Secret)
	}

	if !valid {
		return nil, reject(fiber.StatusUnauthorized, "invalid_signature",
			"signature verification failed", ViolationBadSignature)
	}
	return webhookCfg, nil
}

// lookupConfig resolves the webhook config by explicit id or falls back to
// the first active config for the platform.
func (g *Guard) lookupConfig(c *fiber.Ctx, platform string) (*models.WebhookConfig, error) {
	if id, err := c.ParamsInt("config_id", 0); err == nil && id > 0 {
		return g.configs.GetByID(uint(id))
	}
	return g.configs.FirstActiveForPlatform(platform)
}

// VerifyMetaSignature checks the "sha256=<hex>" digest Facebook and
// Instagram send: HMAC-SHA256 over the raw body, constant-time compare.
func VerifyMetaSignature(payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if !strings.HasPrefix(sig, "sha256=") || secret == "" {
		return false
	}
	decoded, err := hex.DecodeString(strings.ToLower(strings.TrimPrefix(sig, "sha256=")))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decoded)
}

// VerifyTwitterSignature checks the base64 HMAC-SHA256 digest Twitter
// sends, with or without the "sha256=" prefix.
func VerifyTwitterSignature(payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(signatureHeader), "sha256="))
	if sig == "" || secret == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decoded)
}

// VerifyLinkedInSignature checks LinkedIn's composite digest:
// base64(HMAC-SHA256(timestamp + "." + nonce + "." + body)).
func VerifyLinkedInSignature(payload []byte, signatureHeader, timestamp, nonce, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || secret == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write([]byte(nonce))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decoded)
}

// TwitterCRCResponse computes the response token for Twitter's CRC
// challenge: "sha256=" + base64(HMAC-SHA256(crc_token)).
func TwitterCRCResponse(crcToken, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(crcToken))
	return "sha256=" + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// LinkedInChallengeResponse computes the hex HMAC-SHA256 digest LinkedIn
// expects back for its challengeCode probe.
func LinkedInChallengeResponse(challengeCode, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(challengeCode))
	return hex.EncodeToString(mac.Sum(nil))
}
