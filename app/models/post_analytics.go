package models

import (
	"encoding/json"
	"time"
)

// PostAnalytics is the derived engagement record for one platform post,
// keyed by (platform, platform_post_id). Counters are merged additively,
// point-in-time gauges (reach, impressions) are replaced.
type PostAnalytics struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Platform       string    `gorm:"type:varchar(20);not null;index:ux_post_analytics_platform_post,unique,priority:1" json:"platform"`
	PlatformPostID string    `gorm:"type:varchar(191);not null;index:ux_post_analytics_platform_post,unique,priority:2" json:"platform_post_id"`
	SocialPostID   *uint     `gorm:"index" json:"social_post_id,omitempty"`
	Likes          int64     `gorm:"default:0" json:"likes"`
	Comments       int64     `gorm:"default:0" json:"comments"`
	Shares         int64     `gorm:"default:0" json:"shares"`
	Saves          int64     `gorm:"default:0" json:"saves"`
	Reach          int64     `gorm:"default:0" json:"reach"`
	Impressions    int64     `gorm:"default:0" json:"impressions"`
	EngagementRate float64   `gorm:"default:0" json:"engagement_rate"`
	LastMilestone  int64     `gorm:"default:0" json:"last_milestone"`
	RawMetricsJSON string    `gorm:"type:text" json:"raw_metrics"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TotalEngagement is the sum of all interaction counters.
func (a *PostAnalytics) TotalEngagement() int64 {
	return a.Likes + a.Comments + a.Shares + a.Saves
}

// RecomputeEngagementRate updates the engagement-rate gauge from the current
// counters. Reach is preferred; impressions is the fallback audience figure.
func (a *PostAnalytics) RecomputeEngagementRate() {
	volume := a.Reach
	if volume == 0 {
		volume = a.Impressions
	}
	if volume == 0 {
		a.EngagementRate = 0
		return
	}
	a.EngagementRate = float64(a.TotalEngagement()) / float64(volume) * 100
}

// MergeRawMetrics folds provider-specific metric names into the raw metrics
// document for handlers that need values outside the shared vocabulary.
func (a *PostAnalytics) MergeRawMetrics(metrics map[string]int64) {
	raw := map[string]int64{}
	if a.RawMetricsJSON != "" {
		_ = json.Unmarshal([]byte(a.RawMetricsJSON), &raw)
	}
	for k, v := range metrics {
		raw[k] = v
	}
	data, _ := json.Marshal(raw)
	a.RawMetricsJSON = string(data)
}
