package webhook

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/cache"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/env"
)

const isolatedProcessorTestRedisDB = 12

// The cache client starts out pointed at an unreachable address; tests that
// need stateful dedup swap in a real client via withTestRedis.
func TestMain(m *testing.M) {
	cache.SetClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	os.Exit(m.Run())
}

// withTestRedis points the cache package at a reachable Redis endpoint on an
// isolated DB for one test, restoring the previous client afterwards. The
// test skips when no endpoint answers.
func withTestRedis(t *testing.T) {
	t.Helper()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379"))
	client := redis.NewClient(&redis.Options{Addr: addr, DB: isolatedProcessorTestRedisDB})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	_, err := client.Ping(ctx).Result()
	cancel()
	if err != nil {
		_ = client.Close()
		t.Skipf("skipping Redis-dependent test: no reachable Redis at %s (%v)", addr, err)
	}
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("failed to flush isolated redis db %d: %v", isolatedProcessorTestRedisDB, err)
	}

	previous := cache.GetClient()
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(previous)
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
}

// openTestDB connects to the test MySQL database and migrates the schema.
// The test skips when no database answers.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("TEST_DB_USER", "root"),
		env.GetEnv("TEST_DB_PASSWORD", ""),
		env.GetEnv("TEST_DB_HOST", "127.0.0.1"),
		env.GetEnv("TEST_DB_PORT", "3306"),
		env.GetEnv("TEST_DB_NAME", "socialpulse_test"),
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Skipf("skipping MySQL-dependent test: %v", err)
	}
	if err := db.AutoMigrate(
		&models.SocialAccount{},
		&models.SocialPost{},
		&models.WebhookConfig{},
		&models.WebhookEvent{},
		&models.PostAnalytics{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Exec("DELETE FROM webhook_events")
		db.Exec("DELETE FROM post_analytics")
		db.Exec("DELETE FROM notifications")
		db.Exec("DELETE FROM webhook_configs")
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func testProcessorConfig() *config.Config {
	return &config.Config{
		MaxRetries:       3,
		DedupWindow:      time.Hour,
		MilestoneLadder:  []int64{50, 100},
		ViralThresholds:  map[string]config.ViralThreshold{},
		SentimentScores:  map[string]float64{"facebook": -0.5},
		NegativeKeywords: []string{"terrible"},
		PositiveKeywords: []string{"great"},
		UrgentKeywords:   []string{"urgent"},
	}
}

func newTestProcessor(t *testing.T, db *gorm.DB) *Processor {
	t.Helper()
	p, err := NewProcessor(testProcessorConfig(), db, nil, nil)
	require.NoError(t, err)
	return p
}

func seedEvent(t *testing.T, db *gorm.DB, eventID, status, payload string) *models.WebhookEvent {
	t.Helper()
	event := &models.WebhookEvent{
		Platform:   string(models.PlatformFacebook),
		EventID:    eventID,
		EventType:  "page",
		RawPayload: payload,
		Status:     status,
		ReceivedAt: time.Now(),
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

func TestProcessIgnoresFinalizedEvent(t *testing.T) {
	db := openTestDB(t)
	p := newTestProcessor(t, db)

	event := seedEvent(t, db, "evt-final", models.EventStatusProcessed, `{"object":"page"}`)

	outcome := p.Process(context.Background(), event.ID)
	assert.Equal(t, OutcomeIgnored, outcome.Kind)
	assert.Equal(t, "event already finalized", outcome.Reason)
}

func TestProcessIgnoresEventClaimedElsewhere(t *testing.T) {
	db := openTestDB(t)
	p := newTestProcessor(t, db)

	// Processing is not terminal, but the claim update only matches pending
	// and failed rows, so a concurrently claimed event is left alone.
	event := seedEvent(t, db, "", models.EventStatusProcessing, `{"object":"page"}`)

	outcome := p.Process(context.Background(), event.ID)
	assert.Equal(t, OutcomeIgnored, outcome.Kind)
	assert.Equal(t, "event claimed by another worker", outcome.Reason)

	stored, err := models.FindWebhookEventByID(db, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusProcessing, stored.Status)
}

func TestProcessIgnoresDuplicateDelivery(t *testing.T) {
	withTestRedis(t)
	db := openTestDB(t)
	p := newTestProcessor(t, db)

	event := seedEvent(t, db, "evt-dup", models.EventStatusPending, `{"object":"page"}`)

	// Another worker already holds the dedup claim for this delivery.
	fresh, err := cache.SetNX(dedupKeyPrefix+"facebook:evt-dup", 999999, time.Hour)
	require.NoError(t, err)
	require.True(t, fresh)

	outcome := p.Process(context.Background(), event.ID)
	assert.Equal(t, OutcomeIgnored, outcome.Kind)

	stored, err := models.FindWebhookEventByID(db, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusIgnored, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "duplicate delivery")
}

func TestProcessFailsUndecodablePayload(t *testing.T) {
	withTestRedis(t)
	db := openTestDB(t)
	p := newTestProcessor(t, db)

	event := seedEvent(t, db, "evt-broken", models.EventStatusPending, `{"entry":`)

	outcome := p.Process(context.Background(), event.ID)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.False(t, outcome.Retryable, "undecodable payloads never improve with retries")

	stored, err := models.FindWebhookEventByID(db, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)

	// The dedup claim is released so a redelivery is not mistaken for a
	// duplicate of the failed attempt.
	held, err := cache.Exists(dedupKeyPrefix + "facebook:evt-broken")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestProcessEngagementEndToEnd(t *testing.T) {
	withTestRedis(t)
	db := openTestDB(t)
	p := newTestProcessor(t, db)

	payload := `{"object":"page","entry":[{"id":"1001","time":1756700000,"changes":[{
		"field":"feed","value":{"item":"reaction","verb":"add","post_id":"p-77"}}]}]}`
	event := seedEvent(t, db, "evt-like", models.EventStatusPending, payload)

	outcome := p.Process(context.Background(), event.ID)
	require.Nil(t, outcome.Err)
	assert.Equal(t, OutcomeProcessed, outcome.Kind)

	stored, err := models.FindWebhookEventByID(db, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusProcessed, stored.Status)
	require.NotNil(t, stored.ProcessedAt)

	var row models.PostAnalytics
	require.NoError(t, db.Where("platform = ? AND platform_post_id = ?", "facebook", "p-77").First(&row).Error)
	assert.Equal(t, int64(1), row.Likes)

	// A second run sees the finalized row and does nothing further.
	again := p.Process(context.Background(), event.ID)
	assert.Equal(t, OutcomeIgnored, again.Kind)
}

func TestProcessSkipsUnsubscribedField(t *testing.T) {
	db := openTestDB(t)
	p := newTestProcessor(t, db)

	webhookCfg := &models.WebhookConfig{Platform: "facebook", Secret: "s", Active: true}
	webhookCfg.SetSubscribedEvents([]string{"feed"})
	require.NoError(t, db.Create(webhookCfg).Error)

	payload := `{"object":"page","entry":[{"id":"1001","time":1756700000,"changes":[{
		"field":"mention","value":{"post_id":"p-9","message":"hi","sender_id":"u-1"}}]}]}`
	event := seedEvent(t, db, "", models.EventStatusPending, payload)

	outcome := p.Process(context.Background(), event.ID)
	assert.Equal(t, OutcomeIgnored, outcome.Kind)
	assert.Contains(t, outcome.Reason, "not in subscribed events")

	stored, err := models.FindWebhookEventByID(db, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusIgnored, stored.Status)
}

func TestSubscriptionField(t *testing.T) {
	feed := normalize(t, "facebook", `{"object":"page","entry":[{"id":"1","time":1,
		"changes":[{"field":"feed","value":{"item":"comment","comment_id":"c-1","verb":"add"}}]}]}`)
	assert.Equal(t, "feed", subscriptionField("facebook", feed))

	dm := normalize(t, "facebook", `{"object":"page","entry":[{"id":"1","time":1,
		"messaging":[{"sender":{"id":"u-1"},"message":{"mid":"m-1","text":"hi"}}]}]}`)
	assert.Equal(t, "messages", subscriptionField("facebook", dm))

	tw := normalize(t, "twitter", `{"for_user_id":"42","tweet_create_events":[{"id_str":"9"}]}`)
	assert.Equal(t, "tweet_create_events", subscriptionField("twitter", tw))

	li := normalize(t, "linkedin", `{"eventType":"SHARE_CREATED","eventId":"evt-1"}`)
	assert.Equal(t, "SHARE_CREATED", subscriptionField("linkedin", li))

	empty := normalize(t, "facebook", `{"object":"page","entry":[]}`)
	assert.Equal(t, "", subscriptionField("facebook", empty))
}
