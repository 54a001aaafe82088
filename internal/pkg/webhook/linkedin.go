package webhook

import (
	"time"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
)

// linkedinNormalizer maps LinkedIn's typed-event shape: a root eventType
// plus a nested object document per kind.
type linkedinNormalizer struct{}

func (n *linkedinNormalizer) Platform() string {
	return string(models.PlatformLinkedIn)
}

func (n *linkedinNormalizer) Normalize(raw []byte, receivedAt time.Time) (*NormalizedEvent, error) {
	doc, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	event := newEvent(doc, receivedAt)

	switch digString(doc, "eventType") {
	case "UGC_POST_CREATED", "SHARE_CREATED":
		event.ObjectType = ObjectPost
		event.EventType = EventCreated
		event.ObjectID = shareID(doc)
		event.ContentInfo.Text = digString(doc, "share", "text", "text")
	case "UGC_POST_DELETED", "SHARE_DELETED":
		event.ObjectType = ObjectPost
		event.EventType = EventDeleted
		event.ObjectID = shareID(doc)
	case "SHARE_STATISTICS_UPDATE":
		event.ObjectType = ObjectPost
		event.EventType = EventMetricsUpdated
		event.ObjectID = shareID(doc)
		n.extractStatistics(event, doc)
	case "COMMENT_CREATED":
		event.ObjectType = ObjectComment
		event.EventType = EventCreated
		event.ObjectID = digString(doc, "comment", "id")
		event.ContentInfo.Text = digString(doc, "comment", "message", "text")
		event.UserInfo = UserInfo{ID: digString(doc, "comment", "actor")}
	case "COMMENT_DELETED":
		event.ObjectType = ObjectComment
		event.EventType = EventDeleted
		event.ObjectID = digString(doc, "comment", "id")
	case "SOCIAL_ACTION":
		event.ObjectType = ObjectPost
		event.EventType = EventEngagement
		event.ObjectID = shareID(doc)
		n.extractStatistics(event, doc)
	case "LEAD_FORM_RESPONSE":
		event.ObjectType = ObjectLead
		event.EventType = EventCreated
		event.ObjectID = digString(doc, "leadGenFormResponse", "id")
		event.UserInfo = UserInfo{ID: digString(doc, "leadGenFormResponse", "owner")}
	case "FOLLOWER_UPDATE":
		event.ObjectType = ObjectAccount
		event.EventType = EventUpdated
		event.ObjectID = digString(doc, "organizationalEntity")
		if v := digInt(doc, "followerCount"); v > 0 {
			event.EngagementMetrics["follower_count"] = v
		}
	case "MESSAGE_RECEIVED":
		event.ObjectType = ObjectMessage
		event.EventType = EventReceived
		event.ObjectID = digString(doc, "message", "id")
		event.ContentInfo.Text = digString(doc, "message", "body")
		event.UserInfo = UserInfo{ID: digString(doc, "message", "from")}
	}

	return event, nil
}

func shareID(doc map[string]any) string {
	if id := digString(doc, "share", "id"); id != "" {
		return id
	}
	return digString(doc, "shareUrn")
}

func (n *linkedinNormalizer) extractStatistics(event *NormalizedEvent, doc map[string]any) {
	stats := digMap(doc, "statistics")
	if stats == nil {
		return
	}
	copyMetric(event.EngagementMetrics, stats, "numLikes", MetricLikes)
	copyMetric(event.EngagementMetrics, stats, "numComments", MetricComments)
	copyMetric(event.EngagementMetrics, stats, "numShares", MetricShares)
	copyMetric(event.EngagementMetrics, stats, "numImpressions", MetricImpressions)
	copyMetric(event.EngagementMetrics, stats, "numViews", MetricVideoViews)
	copyMetric(event.EngagementMetrics, stats, "uniqueImpressionsCount", MetricReach)
}
