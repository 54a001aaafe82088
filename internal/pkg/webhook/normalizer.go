package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
)

// Normalizer maps one platform's raw payload into the canonical event.
type Normalizer interface {
	Platform() string
	Normalize(raw []byte, receivedAt time.Time) (*NormalizedEvent, error)
}

// NewNormalizer returns the normalizer for a platform.
func NewNormalizer(platform string) (Normalizer, error) {
	switch models.Platform(platform) {
	case models.PlatformFacebook:
		return &facebookNormalizer{}, nil
	case models.PlatformInstagram:
		return &instagramNormalizer{}, nil
	case models.PlatformTwitter:
		return &twitterNormalizer{}, nil
	case models.PlatformLinkedIn:
		return &linkedinNormalizer{}, nil
	}
	return nil, fmt.Errorf("no normalizer for platform %q", platform)
}

// newEvent builds the skeleton every normalizer fills in.
func newEvent(raw map[string]any, receivedAt time.Time) *NormalizedEvent {
	return &NormalizedEvent{
		ObjectType:        ObjectUnknown,
		EventType:         EventUnknown,
		EngagementMetrics: map[string]int64{},
		ReceivedAt:        receivedAt,
		raw:               raw,
	}
}

func decodePayload(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("payload decode: %w", err)
	}
	return doc, nil
}

// Traversal helpers over decoded JSON documents.

func digMap(m map[string]any, keys ...string) map[string]any {
	cur := m
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func digSlice(m map[string]any, key string) []any {
	s, _ := m[key].([]any)
	return s
}

func digString(m map[string]any, keys ...string) string {
	if len(keys) == 0 {
		return ""
	}
	parent := m
	if len(keys) > 1 {
		parent = digMap(m, keys[:len(keys)-1]...)
		if parent == nil {
			return ""
		}
	}
	switch v := parent[keys[len(keys)-1]].(type) {
	case string:
		return v
	case float64:
		// Some providers send numeric ids.
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

func digInt(m map[string]any, keys ...string) int64 {
	if len(keys) == 0 {
		return 0
	}
	parent := m
	if len(keys) > 1 {
		parent = digMap(m, keys[:len(keys)-1]...)
		if parent == nil {
			return 0
		}
	}
	switch v := parent[keys[len(keys)-1]].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// copyMetric maps a provider metric name into the shared vocabulary when
// the source field is present.
func copyMetric(dst map[string]int64, src map[string]any, from, to string) {
	if _, ok := src[from]; ok {
		dst[to] = digInt(src, from)
	}
}
