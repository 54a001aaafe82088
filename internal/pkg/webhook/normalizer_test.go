package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var receivedAt = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func normalize(t *testing.T, platform string, raw string) *NormalizedEvent {
	t.Helper()
	n, err := NewNormalizer(platform)
	require.NoError(t, err)
	event, err := n.Normalize([]byte(raw), receivedAt)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, receivedAt, event.ReceivedAt)
	return event
}

func TestNewNormalizerUnknownPlatform(t *testing.T) {
	_, err := NewNormalizer("myspace")
	assert.Error(t, err)
}

func TestNormalizeRejectsBrokenPayload(t *testing.T) {
	n, err := NewNormalizer("facebook")
	require.NoError(t, err)
	_, err = n.Normalize([]byte(`{"entry":`), receivedAt)
	assert.Error(t, err)
}

func TestFacebookFeedComment(t *testing.T) {
	event := normalize(t, "facebook", `{
		"object": "page",
		"entry": [{"id": "page-1", "time": 1756700000, "changes": [{
			"field": "feed",
			"value": {
				"item": "comment",
				"verb": "add",
				"comment_id": "c-1",
				"post_id": "p-1",
				"message": "love this",
				"from": {"id": "u-9", "name": "Ada"}
			}
		}]}]
	}`)

	assert.Equal(t, ObjectComment, event.ObjectType)
	assert.Equal(t, EventCreated, event.EventType)
	assert.Equal(t, "c-1", event.ObjectID)
	assert.Equal(t, "love this", event.ContentInfo.Text)
	assert.Equal(t, UserInfo{ID: "u-9", Name: "Ada"}, event.UserInfo)
}

func TestFacebookReaction(t *testing.T) {
	add := normalize(t, "facebook", `{
		"entry": [{"changes": [{"field": "feed", "value": {
			"item": "reaction", "verb": "add", "post_id": "p-1"
		}}]}]
	}`)
	assert.Equal(t, ObjectPost, add.ObjectType)
	assert.Equal(t, EventEngagement, add.EventType)
	assert.Equal(t, int64(1), add.Metric(MetricLikes))

	remove := normalize(t, "facebook", `{
		"entry": [{"changes": [{"field": "feed", "value": {
			"item": "reaction", "verb": "remove", "post_id": "p-1"
		}}]}]
	}`)
	assert.Equal(t, int64(-1), remove.Metric(MetricLikes))
}

func TestFacebookDirectMessage(t *testing.T) {
	event := normalize(t, "facebook", `{
		"entry": [{"messaging": [{
			"sender": {"id": "u-3"},
			"message": {"mid": "m-77", "text": "I need a refund now"}
		}]}]
	}`)

	assert.Equal(t, ObjectMessage, event.ObjectType)
	assert.Equal(t, EventReceived, event.EventType)
	assert.Equal(t, "m-77", event.ObjectID)
	assert.Equal(t, "I need a refund now", event.ContentInfo.Text)
	assert.Equal(t, "u-3", event.UserInfo.ID)
}

func TestFacebookLeadgen(t *testing.T) {
	event := normalize(t, "facebook", `{
		"entry": [{"changes": [{"field": "leadgen", "value": {"leadgen_id": "lead-5"}}]}]
	}`)
	assert.Equal(t, ObjectLead, event.ObjectType)
	assert.Equal(t, EventCreated, event.EventType)
	assert.Equal(t, "lead-5", event.ObjectID)
}

func TestFacebookEmptyEntryIsUnknown(t *testing.T) {
	event := normalize(t, "facebook", `{"object": "page", "entry": []}`)
	assert.Equal(t, ObjectUnknown, event.ObjectType)
	assert.Equal(t, EventUnknown, event.EventType)
}

func TestInstagramComment(t *testing.T) {
	event := normalize(t, "instagram", `{
		"entry": [{"changes": [{"field": "comments", "value": {
			"id": "ig-c-1",
			"text": "awesome shot",
			"from": {"id": "ig-u-1", "username": "ada"},
			"like_count": 12,
			"comments_count": 3
		}}]}]
	}`)

	assert.Equal(t, ObjectComment, event.ObjectType)
	assert.Equal(t, EventCreated, event.EventType)
	assert.Equal(t, "ig-c-1", event.ObjectID)
	assert.Equal(t, "awesome shot", event.ContentInfo.Text)
	assert.Equal(t, "ada", event.UserInfo.Name)
	assert.Equal(t, int64(12), event.Metric(MetricLikes))
	assert.Equal(t, int64(3), event.Metric(MetricComments))
}

func TestInstagramStoryInsights(t *testing.T) {
	event := normalize(t, "instagram", `{
		"entry": [{"changes": [{"field": "story_insights", "value": {
			"media_id": "story-1", "impressions": 500, "reach": 400, "replies": 7
		}}]}]
	}`)

	assert.Equal(t, ObjectStory, event.ObjectType)
	assert.Equal(t, EventMetricsUpdated, event.EventType)
	assert.Equal(t, "story-1", event.ObjectID)
	assert.Equal(t, int64(500), event.Metric(MetricImpressions))
	assert.Equal(t, int64(400), event.Metric(MetricReach))
	assert.Equal(t, int64(7), event.Metric(MetricComments))
}

func TestTwitterTweetCreate(t *testing.T) {
	event := normalize(t, "twitter", `{
		"for_user_id": "acct-1",
		"tweet_create_events": [{
			"id_str": "t-1",
			"text": "shipping day",
			"user": {"id_str": "acct-1", "screen_name": "pulse"},
			"favorite_count": 4,
			"retweet_count": 2
		}]
	}`)

	assert.Equal(t, ObjectPost, event.ObjectType)
	assert.Equal(t, EventCreated, event.EventType)
	assert.Equal(t, "t-1", event.ObjectID)
	assert.Equal(t, int64(4), event.Metric(MetricLikes))
	assert.Equal(t, int64(2), event.Metric(MetricShares))
}

func TestTwitterRetweetIsEngagementOnOriginal(t *testing.T) {
	event := normalize(t, "twitter", `{
		"tweet_create_events": [{
			"id_str": "rt-9",
			"user": {"id_str": "fan-1", "screen_name": "fan"},
			"retweeted_status": {"id_str": "orig-1"}
		}]
	}`)

	assert.Equal(t, EventEngagement, event.EventType)
	assert.Equal(t, "orig-1", event.ObjectID)
	assert.Equal(t, int64(1), event.Metric(MetricShares))
}

func TestTwitterMention(t *testing.T) {
	event := normalize(t, "twitter", `{
		"for_user_id": "acct-1",
		"tweet_create_events": [{
			"id_str": "t-5",
			"text": "hey @pulse",
			"user": {"id_str": "fan-1"},
			"entities": {"user_mentions": [{"id_str": "acct-1"}]}
		}]
	}`)
	assert.Equal(t, EventMention, event.EventType)
}

func TestTwitterFavoriteAndFollow(t *testing.T) {
	fav := normalize(t, "twitter", `{
		"favorite_events": [{
			"favorited_status": {"id_str": "t-3"},
			"user": {"id_str": "fan-2", "screen_name": "fan2"}
		}]
	}`)
	assert.Equal(t, EventEngagement, fav.EventType)
	assert.Equal(t, "t-3", fav.ObjectID)
	assert.Equal(t, int64(1), fav.Metric(MetricLikes))

	follow := normalize(t, "twitter", `{
		"follow_events": [{"type": "follow", "source": {"id": "fan-3", "screen_name": "fan3"}}]
	}`)
	assert.Equal(t, ObjectUser, follow.ObjectType)
	assert.Equal(t, EventFollowed, follow.EventType)

	unfollow := normalize(t, "twitter", `{
		"follow_events": [{"type": "unfollow", "source": {"id": "fan-3"}}]
	}`)
	assert.Equal(t, EventUnfollowed, unfollow.EventType)
}

func TestLinkedInShareLifecycle(t *testing.T) {
	created := normalize(t, "linkedin", `{
		"eventType": "SHARE_CREATED",
		"share": {"id": "urn:li:share:1", "text": {"text": "we are hiring"}}
	}`)
	assert.Equal(t, ObjectPost, created.ObjectType)
	assert.Equal(t, EventCreated, created.EventType)
	assert.Equal(t, "urn:li:share:1", created.ObjectID)
	assert.Equal(t, "we are hiring", created.ContentInfo.Text)

	stats := normalize(t, "linkedin", `{
		"eventType": "SHARE_STATISTICS_UPDATE",
		"shareUrn": "urn:li:share:1",
		"statistics": {"numLikes": 40, "numComments": 5, "numImpressions": 2000}
	}`)
	assert.Equal(t, EventMetricsUpdated, stats.EventType)
	assert.Equal(t, "urn:li:share:1", stats.ObjectID)
	assert.Equal(t, int64(40), stats.Metric(MetricLikes))
	assert.Equal(t, int64(2000), stats.Metric(MetricImpressions))
}

func TestLinkedInLeadFormResponse(t *testing.T) {
	event := normalize(t, "linkedin", `{
		"eventType": "LEAD_FORM_RESPONSE",
		"leadGenFormResponse": {"id": "lead-1", "owner": "urn:li:organization:9"}
	}`)
	assert.Equal(t, ObjectLead, event.ObjectType)
	assert.Equal(t, EventCreated, event.EventType)
	assert.Equal(t, "lead-1", event.ObjectID)
}

func TestRawPath(t *testing.T) {
	event := normalize(t, "facebook", `{
		"entry": [{"changes": [{"field": "feed", "value": {"item": "post", "post_id": "p-1"}}]}]
	}`)

	field, ok := event.RawPath("entry.0.changes.0.field")
	require.True(t, ok)
	assert.Equal(t, "feed", field)

	_, ok = event.RawPath("entry.5.changes")
	assert.False(t, ok)
	_, ok = event.RawPath("entry.0.missing")
	assert.False(t, ok)
}
