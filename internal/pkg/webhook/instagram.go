package webhook

import (
	"time"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
)

// instagramNormalizer maps the Instagram Graph shape: change-feed entries
// like Facebook, plus story_insights and messaging arrays.
type instagramNormalizer struct{}

func (n *instagramNormalizer) Platform() string {
	return string(models.PlatformInstagram)
}

func (n *instagramNormalizer) Normalize(raw []byte, receivedAt time.Time) (*NormalizedEvent, error) {
	doc, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	event := newEvent(doc, receivedAt)

	entries := digSlice(doc, "entry")
	if len(entries) == 0 {
		return event, nil
	}
	entry, ok := entries[0].(map[string]any)
	if !ok {
		return event, nil
	}

	if messaging := digSlice(entry, "messaging"); len(messaging) > 0 {
		if msg, ok := messaging[0].(map[string]any); ok {
			event.ObjectType = ObjectMessage
			event.EventType = EventReceived
			event.ObjectID = digString(msg, "message", "mid")
			event.ContentInfo.Text = digString(msg, "message", "text")
			event.UserInfo = UserInfo{ID: digString(msg, "sender", "id")}
			return event, nil
		}
	}

	changes := digSlice(entry, "changes")
	if len(changes) == 0 {
		return event, nil
	}
	change, ok := changes[0].(map[string]any)
	if !ok {
		return event, nil
	}
	field := digString(change, "field")
	value := digMap(change, "value")
	if value == nil {
		return event, nil
	}

	switch field {
	case "comments", "live_comments":
		event.ObjectType = ObjectComment
		event.EventType = EventCreated
		event.ObjectID = digString(value, "id")
		if event.ObjectID == "" {
			event.ObjectID = digString(value, "media", "id")
		}
		event.ContentInfo.Text = digString(value, "text")
		event.UserInfo = UserInfo{
			ID:   digString(value, "from", "id"),
			Name: digString(value, "from", "username"),
		}
	case "mentions":
		event.ObjectType = ObjectPost
		event.EventType = EventMention
		event.ObjectID = digString(value, "media_id")
		event.ContentInfo.Text = digString(value, "comment_text")
	case "story_insights":
		event.ObjectType = ObjectStory
		event.EventType = EventMetricsUpdated
		event.ObjectID = digString(value, "media_id")
		copyMetric(event.EngagementMetrics, value, "impressions", MetricImpressions)
		copyMetric(event.EngagementMetrics, value, "reach", MetricReach)
		copyMetric(event.EngagementMetrics, value, "replies", MetricComments)
	case "media":
		event.ObjectType = ObjectPost
		event.EventType = EventUpdated
		event.ObjectID = digString(value, "media_id")
	case "follows":
		event.ObjectType = ObjectUser
		event.EventType = EventFollowed
		event.ObjectID = digString(value, "follower_id")
	}

	// Instagram counts saves; map them alongside the common counters.
	copyMetric(event.EngagementMetrics, value, "like_count", MetricLikes)
	copyMetric(event.EngagementMetrics, value, "comments_count", MetricComments)
	copyMetric(event.EngagementMetrics, value, "saved", MetricSaves)
	copyMetric(event.EngagementMetrics, value, "impressions", MetricImpressions)
	copyMetric(event.EngagementMetrics, value, "reach", MetricReach)

	return event, nil
}
