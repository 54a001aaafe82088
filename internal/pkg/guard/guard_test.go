package guard

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/cache"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
)

// The cache client is pointed at an unreachable address so every redis-backed
// stage (blocked-IP lookup, replay store, rate limiting, violation counters)
// exercises its fail-open path. The signature check carries the test.
func TestMain(m *testing.M) {
	cache.SetClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		MaxPayloadBytes:     1 << 20,
		MaxJSONDepth:        10,
		ReplayWindow:        5 * time.Minute,
		TimestampTolerance:  5 * time.Minute,
		IPRangeRefreshTTL:   time.Hour,
		RateLimitPerMinute:  60,
		RateLimitPerHour:    1000,
		RateLimitBurst10s:   20,
		RateLimitGlobalMin:  600,
		ViolationSpikeLimit: 50,
	}
}

type stubConfigRepo struct {
	cfg *models.WebhookConfig
	err error
}

func (s *stubConfigRepo) Create(*models.WebhookConfig) error { return nil }
func (s *stubConfigRepo) GetByID(uint) (*models.WebhookConfig, error) {
	return s.cfg, s.err
}
func (s *stubConfigRepo) FirstActiveForPlatform(string) (*models.WebhookConfig, error) {
	return s.cfg, s.err
}
func (s *stubConfigRepo) RotateSecret(uint, string) error { return nil }
func (s *stubConfigRepo) Deactivate(uint) error           { return nil }

// newTestGuard builds a guard whose range sets are marked freshly refreshed,
// so Allowed never reaches out to the provider sources during tests.
func newTestGuard(cfg *config.Config, repo *stubConfigRepo) *Guard {
	g := New(cfg, repo)
	g.ranges.mu.Lock()
	for _, p := range models.AllPlatforms {
		g.ranges.refreshed[string(p)] = time.Now()
	}
	g.ranges.mu.Unlock()
	return g
}

func checkRequest(t *testing.T, g *Guard, platform string, body []byte, headers map[string]string) (*Admission, *Rejection) {
	t.Helper()

	var (
		adm *Admission
		rej *Rejection
	)
	app := fiber.New()
	app.Post("/api/webhooks/:platform", func(c *fiber.Ctx) error {
		adm, rej = g.Check(c)
		return nil
	})

	req := httptest.NewRequest(fiber.MethodPost, "/api/webhooks/"+platform, bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	_, err := app.Test(req)
	require.NoError(t, err)
	return adm, rej
}

func TestCheckAdmitsSignedFacebookDelivery(t *testing.T) {
	secret := "fb-secret"
	repo := &stubConfigRepo{cfg: &models.WebhookConfig{ID: 7, Platform: "facebook", Secret: secret, Active: true}}
	g := newTestGuard(testConfig(), repo)

	body := []byte(`{"object":"page","entry":[{"id":"1001","time":1756700000}]}`)
	adm, rej := checkRequest(t, g, "facebook", body, map[string]string{
		HeaderMetaSignature: metaSignature(body, secret),
		"X-Forwarded-For":   "31.13.64.5", // inside Meta's published ranges
	})

	require.Nil(t, rej)
	require.NotNil(t, adm)
	assert.Equal(t, "facebook", adm.Platform)
	assert.Equal(t, uint(7), adm.Config.ID)
	assert.Equal(t, "31.13.64.5", adm.ClientIP)
	assert.Equal(t, body, adm.Body)
}

func TestCheckAdmitsSignedTwitterDelivery(t *testing.T) {
	secret := "tw-secret"
	repo := &stubConfigRepo{cfg: &models.WebhookConfig{ID: 3, Platform: "twitter", Secret: secret, Active: true}}
	g := newTestGuard(testConfig(), repo)

	body := []byte(`{"tweet_create_events":[{"id_str":"99"}]}`)
	adm, rej := checkRequest(t, g, "twitter", body, map[string]string{
		HeaderTwitterSignature: "sha256=" + twitterSignature(body, secret),
	})

	require.Nil(t, rej)
	require.NotNil(t, adm)
	assert.Equal(t, "twitter", adm.Platform)
}

func TestCheckAdmitsSignedLinkedInDelivery(t *testing.T) {
	secret := "li-secret"
	repo := &stubConfigRepo{cfg: &models.WebhookConfig{ID: 5, Platform: "linkedin", Secret: secret, Active: true}}
	g := newTestGuard(testConfig(), repo)

	body := []byte(`{"eventType":"SHARE_LIFECYCLE","eventId":"evt-1"}`)
	timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())
	nonce := "nonce-abc"
	adm, rej := checkRequest(t, g, "linkedin", body, map[string]string{
		HeaderLinkedInSig:   linkedInSignature(body, timestamp, nonce, secret),
		HeaderLinkedInTime:  timestamp,
		HeaderLinkedInNonce: nonce,
	})

	require.Nil(t, rej)
	require.NotNil(t, adm)
	assert.Equal(t, "linkedin", adm.Platform)
}

func TestCheckRejectsUnknownPlatform(t *testing.T) {
	g := newTestGuard(testConfig(), &stubConfigRepo{})

	adm, rej := checkRequest(t, g, "telegram", []byte(`{}`), nil)

	assert.Nil(t, adm)
	require.NotNil(t, rej)
	assert.Equal(t, fiber.StatusBadRequest, rej.Status)
	assert.Equal(t, "unknown_platform", rej.Code)
}

func TestCheckRejectsMissingSignature(t *testing.T) {
	repo := &stubConfigRepo{cfg: &models.WebhookConfig{ID: 1, Platform: "facebook", Secret: "s", Active: true}}
	g := newTestGuard(testConfig(), repo)

	adm, rej := checkRequest(t, g, "facebook", []byte(`{"object":"page"}`), nil)

	assert.Nil(t, adm)
	require.NotNil(t, rej)
	assert.Equal(t, fiber.StatusUnauthorized, rej.Status)
	assert.Equal(t, "missing_signature", rej.Code)
}

func TestCheckRejectsInvalidSignature(t *testing.T) {
	repo := &stubConfigRepo{cfg: &models.WebhookConfig{ID: 1, Platform: "facebook", Secret: "right", Active: true}}
	g := newTestGuard(testConfig(), repo)

	body := []byte(`{"object":"page"}`)
	adm, rej := checkRequest(t, g, "facebook", body, map[string]string{
		HeaderMetaSignature: metaSignature(body, "wrong"),
	})

	assert.Nil(t, adm)
	require.NotNil(t, rej)
	assert.Equal(t, fiber.StatusUnauthorized, rej.Status)
	assert.Equal(t, "invalid_signature", rej.Code)
}

func TestCheckRejectsWithoutConfig(t *testing.T) {
	repo := &stubConfigRepo{err: fmt.Errorf("record not found")}
	g := newTestGuard(testConfig(), repo)

	adm, rej := checkRequest(t, g, "facebook", []byte(`{"object":"page"}`), nil)

	assert.Nil(t, adm)
	require.NotNil(t, rej)
	assert.Equal(t, fiber.StatusNotFound, rej.Status)
	assert.Equal(t, "no_webhook_config", rej.Code)
}

func TestCheckRejectsStaleTimestamp(t *testing.T) {
	secret := "fb-secret"
	repo := &stubConfigRepo{cfg: &models.WebhookConfig{ID: 1, Platform: "facebook", Secret: secret, Active: true}}
	g := newTestGuard(testConfig(), repo)

	body := []byte(`{"object":"page"}`)
	stale := time.Now().Add(-time.Hour).Unix()
	adm, rej := checkRequest(t, g, "facebook", body, map[string]string{
		HeaderMetaSignature:   metaSignature(body, secret),
		"X-Webhook-Timestamp": fmt.Sprintf("%d", stale),
	})

	assert.Nil(t, adm)
	require.NotNil(t, rej)
	assert.Equal(t, fiber.StatusUnauthorized, rej.Status)
	assert.Equal(t, "stale_timestamp", rej.Code)
}

func TestCheckRejectsMalformedPayloadAfterAuth(t *testing.T) {
	secret := "fb-secret"
	repo := &stubConfigRepo{cfg: &models.WebhookConfig{ID: 1, Platform: "facebook", Secret: secret, Active: true}}
	g := newTestGuard(testConfig(), repo)

	body := []byte(`{"text":"<script>alert(1)</script>"}`)
	adm, rej := checkRequest(t, g, "facebook", body, map[string]string{
		HeaderMetaSignature: metaSignature(body, secret),
	})

	assert.Nil(t, adm)
	require.NotNil(t, rej)
	assert.Equal(t, fiber.StatusUnprocessableEntity, rej.Status)
	assert.Equal(t, "suspicious_content", rej.Code)
}

func TestCheckStrictModeBlocksForeignIP(t *testing.T) {
	cfg := testConfig()
	cfg.IPAllowlistStrict = true
	repo := &stubConfigRepo{cfg: &models.WebhookConfig{ID: 1, Platform: "facebook", Secret: "s", Active: true}}
	g := newTestGuard(cfg, repo)

	adm, rej := checkRequest(t, g, "facebook", []byte(`{"object":"page"}`), map[string]string{
		"X-Forwarded-For": "8.8.8.8",
	})

	assert.Nil(t, adm)
	require.NotNil(t, rej)
	assert.Equal(t, fiber.StatusForbidden, rej.Status)
	assert.Equal(t, "ip_not_allowed", rej.Code)
}

func TestIPRangeManagerAllowed(t *testing.T) {
	m := NewIPRangeManager(testConfig())
	m.mu.Lock()
	for _, p := range models.AllPlatforms {
		m.refreshed[string(p)] = time.Now()
	}
	m.mu.Unlock()

	allowed, err := m.Allowed("facebook", "31.13.64.5")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = m.Allowed("facebook", "8.8.8.8")
	require.NoError(t, err)
	assert.False(t, allowed)

	_, err = m.Allowed("facebook", "not-an-ip")
	assert.Error(t, err)
}
