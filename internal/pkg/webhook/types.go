package webhook

import (
	"strconv"
	"strings"
	"time"
)

// ObjectType classifies what a normalized event is about.
type ObjectType string

const (
	ObjectPost    ObjectType = "post"
	ObjectComment ObjectType = "comment"
	ObjectMessage ObjectType = "message"
	ObjectUser    ObjectType = "user"
	ObjectLead    ObjectType = "lead"
	ObjectStory   ObjectType = "story"
	ObjectAccount ObjectType = "account"
	ObjectUnknown ObjectType = "unknown"
)

// EventType classifies what happened to the object.
type EventType string

const (
	EventCreated        EventType = "created"
	EventUpdated        EventType = "updated"
	EventDeleted        EventType = "deleted"
	EventEngagement     EventType = "engagement"
	EventMetricsUpdated EventType = "metrics_updated"
	EventMention        EventType = "mention"
	EventFollowed       EventType = "followed"
	EventUnfollowed     EventType = "unfollowed"
	EventReceived       EventType = "received"
	EventExpired        EventType = "expired"
	EventUnknown        EventType = "unknown"
)

// Shared engagement-metric vocabulary. Provider-specific names are mapped
// into these keys by the normalizers.
const (
	MetricLikes       = "likes"
	MetricComments    = "comments"
	MetricShares      = "shares"
	MetricSaves       = "saves"
	MetricReach       = "reach"
	MetricImpressions = "impressions"
	MetricVideoViews  = "video_views"
)

// ContentInfo carries the human-visible part of an event.
type ContentInfo struct {
	Text      string
	MediaType string
	MediaURL  string
}

// UserInfo identifies the acting platform user.
type UserInfo struct {
	ID   string
	Name string
}

// NormalizedEvent is the canonical, platform-agnostic representation of one
// webhook notification. It is transient: owned by the processing pipeline
// for the duration of one event's handling and never persisted or shared.
type NormalizedEvent struct {
	ObjectType        ObjectType
	EventType         EventType
	ObjectID          string
	ContentInfo       ContentInfo
	EngagementMetrics map[string]int64
	UserInfo          UserInfo
	ReceivedAt        time.Time

	raw map[string]any
}

// Metric returns a canonical engagement metric, zero when absent.
func (e *NormalizedEvent) Metric(name string) int64 {
	if e.EngagementMetrics == nil {
		return 0
	}
	return e.EngagementMetrics[name]
}

// RawPath looks up a dotted path ("entry.0.changes.0.field") in the raw
// payload, for handlers needing provider-specific fields outside the
// canonical shape.
func (e *NormalizedEvent) RawPath(path string) (any, bool) {
	var cur any = e.raw
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Outcome kinds of one processing attempt.
const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
)

// Outcome is the explicit result of processing one event. The queue
// collaborator retries only on Failed outcomes marked retryable.
type Outcome struct {
	Kind      string
	Reason    string
	Err       error
	Retryable bool
}

func Processed() Outcome {
	return Outcome{Kind: OutcomeProcessed}
}

func Ignored(reason string) Outcome {
	return Outcome{Kind: OutcomeIgnored, Reason: reason}
}

func Failed(err error, retryable bool) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err, Retryable: retryable}
}
