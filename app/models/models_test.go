package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPlatform(t *testing.T) {
	for _, p := range AllPlatforms {
		assert.True(t, IsValidPlatform(string(p)))
	}
	assert.False(t, IsValidPlatform("telegram"))
	assert.False(t, IsValidPlatform("Facebook"))
	assert.False(t, IsValidPlatform(""))
}

func TestWebhookEventIsTerminal(t *testing.T) {
	assert.True(t, (&WebhookEvent{Status: EventStatusProcessed}).IsTerminal())
	assert.True(t, (&WebhookEvent{Status: EventStatusIgnored}).IsTerminal())

	// Failed events stay claimable for retries.
	assert.False(t, (&WebhookEvent{Status: EventStatusFailed}).IsTerminal())
	assert.False(t, (&WebhookEvent{Status: EventStatusPending}).IsTerminal())
	assert.False(t, (&WebhookEvent{Status: EventStatusProcessing}).IsTerminal())
}

func TestWebhookConfigSubscribedEvents(t *testing.T) {
	cfg := &WebhookConfig{}
	assert.Empty(t, cfg.SubscribedEvents())

	cfg.SetSubscribedEvents([]string{"feed", "comments"})
	assert.Equal(t, []string{"feed", "comments"}, cfg.SubscribedEvents())

	assert.True(t, cfg.IsSubscribed("feed"))
	assert.False(t, cfg.IsSubscribed("leadgen"))

	// An empty subscription list means every event type.
	open := &WebhookConfig{}
	assert.True(t, open.IsSubscribed("anything"))
}

func TestPostAnalyticsTotalEngagement(t *testing.T) {
	a := &PostAnalytics{Likes: 10, Comments: 5, Shares: 3, Saves: 2}
	assert.Equal(t, int64(20), a.TotalEngagement())
	assert.Equal(t, int64(0), (&PostAnalytics{}).TotalEngagement())
}

func TestRecomputeEngagementRate(t *testing.T) {
	a := &PostAnalytics{Likes: 10, Comments: 10, Reach: 400}
	a.RecomputeEngagementRate()
	assert.InDelta(t, 5.0, a.EngagementRate, 0.001)

	// Impressions are the fallback audience figure when reach is unknown.
	b := &PostAnalytics{Likes: 30, Impressions: 600}
	b.RecomputeEngagementRate()
	assert.InDelta(t, 5.0, b.EngagementRate, 0.001)

	// No audience data at all yields a zero rate, not a division by zero.
	c := &PostAnalytics{Likes: 30}
	c.RecomputeEngagementRate()
	assert.Equal(t, 0.0, c.EngagementRate)
}

func TestMergeRawMetrics(t *testing.T) {
	a := &PostAnalytics{}
	a.MergeRawMetrics(map[string]int64{"numViews": 100, "numLikes": 5})
	a.MergeRawMetrics(map[string]int64{"numViews": 150, "follower_count": 9})

	var raw map[string]int64
	assert.NoError(t, json.Unmarshal([]byte(a.RawMetricsJSON), &raw))
	assert.Equal(t, int64(150), raw["numViews"])
	assert.Equal(t, int64(5), raw["numLikes"])
	assert.Equal(t, int64(9), raw["follower_count"])
}
