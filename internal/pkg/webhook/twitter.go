package webhook

import (
	"time"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
)

// twitterNormalizer maps the Account Activity API shape: flat event arrays
// named by kind on the payload root.
type twitterNormalizer struct{}

func (n *twitterNormalizer) Platform() string {
	return string(models.PlatformTwitter)
}

func (n *twitterNormalizer) Normalize(raw []byte, receivedAt time.Time) (*NormalizedEvent, error) {
	doc, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	event := newEvent(doc, receivedAt)

	if tweets := digSlice(doc, "tweet_create_events"); len(tweets) > 0 {
		if tweet, ok := tweets[0].(map[string]any); ok {
			n.normalizeTweet(event, tweet, doc)
		}
		return event, nil
	}

	if favs := digSlice(doc, "favorite_events"); len(favs) > 0 {
		if fav, ok := favs[0].(map[string]any); ok {
			event.ObjectType = ObjectPost
			event.EventType = EventEngagement
			event.ObjectID = digString(fav, "favorited_status", "id_str")
			event.EngagementMetrics[MetricLikes] = 1
			event.UserInfo = UserInfo{
				ID:   digString(fav, "user", "id_str"),
				Name: digString(fav, "user", "screen_name"),
			}
		}
		return event, nil
	}

	if dms := digSlice(doc, "direct_message_events"); len(dms) > 0 {
		if dm, ok := dms[0].(map[string]any); ok {
			event.ObjectType = ObjectMessage
			event.EventType = EventReceived
			event.ObjectID = digString(dm, "id")
			event.ContentInfo.Text = digString(dm, "message_create", "message_data", "text")
			event.UserInfo = UserInfo{ID: digString(dm, "message_create", "sender_id")}
		}
		return event, nil
	}

	if follows := digSlice(doc, "follow_events"); len(follows) > 0 {
		if follow, ok := follows[0].(map[string]any); ok {
			event.ObjectType = ObjectUser
			event.ObjectID = digString(follow, "source", "id")
			event.UserInfo = UserInfo{
				ID:   digString(follow, "source", "id"),
				Name: digString(follow, "source", "screen_name"),
			}
			if digString(follow, "type") == "unfollow" {
				event.EventType = EventUnfollowed
			} else {
				event.EventType = EventFollowed
			}
		}
		return event, nil
	}

	if deletes := digSlice(doc, "tweet_delete_events"); len(deletes) > 0 {
		if del, ok := deletes[0].(map[string]any); ok {
			event.ObjectType = ObjectPost
			event.EventType = EventDeleted
			event.ObjectID = digString(del, "status", "id")
		}
		return event, nil
	}

	return event, nil
}

func (n *twitterNormalizer) normalizeTweet(event *NormalizedEvent, tweet, doc map[string]any) {
	event.ObjectType = ObjectPost
	event.ObjectID = digString(tweet, "id_str")
	event.ContentInfo.Text = digString(tweet, "text")
	event.UserInfo = UserInfo{
		ID:   digString(tweet, "user", "id_str"),
		Name: digString(tweet, "user", "screen_name"),
	}

	switch {
	case digMap(tweet, "retweeted_status") != nil:
		// A retweet of the subscribed user's tweet is engagement on it.
		event.EventType = EventEngagement
		event.ObjectID = digString(tweet, "retweeted_status", "id_str")
		event.EngagementMetrics[MetricShares] = 1
	case mentionsUser(tweet, digString(doc, "for_user_id")):
		event.EventType = EventMention
	default:
		event.EventType = EventCreated
	}

	copyMetric(event.EngagementMetrics, tweet, "favorite_count", MetricLikes)
	copyMetric(event.EngagementMetrics, tweet, "retweet_count", MetricShares)
	copyMetric(event.EngagementMetrics, tweet, "reply_count", MetricComments)
	copyMetric(event.EngagementMetrics, tweet, "impression_count", MetricImpressions)
}

func mentionsUser(tweet map[string]any, userID string) bool {
	if userID == "" {
		return false
	}
	entities := digMap(tweet, "entities")
	if entities == nil {
		return false
	}
	for _, m := range digSlice(entities, "user_mentions") {
		if mm, ok := m.(map[string]any); ok && digString(mm, "id_str") == userID {
			return true
		}
	}
	return false
}
