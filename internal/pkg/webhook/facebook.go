package webhook

import (
	"time"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
)

// facebookNormalizer maps the Graph API change-feed shape:
// entry[] → changes[] with a field name and a value document.
type facebookNormalizer struct{}

func (n *facebookNormalizer) Platform() string {
	return string(models.PlatformFacebook)
}

func (n *facebookNormalizer) Normalize(raw []byte, receivedAt time.Time) (*NormalizedEvent, error) {
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

	// Direct messages arrive as messaging[] on the entry, not as a change.
	if messaging := digSlice(entry, "messaging"); len(messaging) > 0 {
		if msg, ok := messaging[0].(map[string]any); ok {
			n.normalizeMessage(event, msg)
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
	case "feed":
		n.normalizeFeedChange(event, value)
	case "mention":
		event.ObjectType = ObjectPost
		event.EventType = EventMention
		event.ObjectID = digString(value, "post_id")
		event.ContentInfo.Text = digString(value, "message")
		event.UserInfo = UserInfo{ID: digString(value, "sender_id"), Name: digString(value, "sender_name")}
	case "leadgen":
		event.ObjectType = ObjectLead
		event.EventType = EventCreated
		event.ObjectID = digString(value, "leadgen_id")
	case "messages":
		n.normalizeMessage(event, value)
	}

	n.extractMetrics(event, value)
	return event, nil
}

func (n *facebookNormalizer) normalizeFeedChange(event *NormalizedEvent, value map[string]any) {
	item := digString(value, "item")
	verb := digString(value, "verb")

	switch item {
	case "comment":
		event.ObjectType = ObjectComment
		event.ObjectID = digString(value, "comment_id")
	case "reaction", "like":
		event.ObjectType = ObjectPost
		event.ObjectID = digString(value, "post_id")
		event.EventType = EventEngagement
	case "post", "status", "photo", "video":
		event.ObjectType = ObjectPost
		event.ObjectID = digString(value, "post_id")
	default:
		return
	}

	if event.EventType == EventUnknown {
		switch verb {
		case "add":
			event.EventType = EventCreated
		case "edit", "edited":
			event.EventType = EventUpdated
		case "remove", "delete":
			event.EventType = EventDeleted
		}
	}
	if event.ObjectType == ObjectPost && event.EventType == EventEngagement {
		// A reaction add counts as one like; removals subtract.
		if verb == "remove" {
			event.EngagementMetrics[MetricLikes] = -1
		} else {
			event.EngagementMetrics[MetricLikes] = 1
		}
	}

	event.ContentInfo.Text = digString(value, "message")
	event.ContentInfo.MediaURL = digString(value, "link")
	event.UserInfo = UserInfo{
		ID:   digString(value, "from", "id"),
		Name: digString(value, "from", "name"),
	}
	// Comments reference their parent post for analytics attribution.
	if event.ObjectType == ObjectComment && event.ObjectID == "" {
		event.ObjectID = digString(value, "post_id")
	}
}

func (n *facebookNormalizer) normalizeMessage(event *NormalizedEvent, msg map[string]any) {
	event.ObjectType = ObjectMessage
	event.EventType = EventReceived
	event.ObjectID = digString(msg, "message", "mid")
	event.ContentInfo.Text = digString(msg, "message", "text")
	event.UserInfo = UserInfo{ID: digString(msg, "sender", "id")}
}

func (n *facebookNormalizer) extractMetrics(event *NormalizedEvent, value map[string]any) {
	copyMetric(event.EngagementMetrics, value, "likes", MetricLikes)
	copyMetric(event.EngagementMetrics, value, "comments", MetricComments)
	copyMetric(event.EngagementMetrics, value, "shares", MetricShares)
	copyMetric(event.EngagementMetrics, value, "reach", MetricReach)
	copyMetric(event.EngagementMetrics, value, "impressions", MetricImpressions)
	copyMetric(event.EngagementMetrics, value, "video_views", MetricVideoViews)
}
