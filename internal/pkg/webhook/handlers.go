package webhook

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
	"github.com/SocialPulseHQ/SocialPulse/app/repository"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
)

// RouteKey selects the business handler for one (object, event) combination.
type RouteKey struct {
	Object ObjectType
	Event  EventType
}

// HandlerFunc is one business handler. It runs inside the processing
// transaction: every write through hc.Tx commits or rolls back as a unit.
type HandlerFunc func(hc *HandlerContext) error

// EventHandler is the per-platform capability set. Routes not present in
// the table fall through to an "ignored" outcome, so a platform only
// implements the combinations it genuinely handles.
type EventHandler interface {
	Platform() string
	Routes() map[RouteKey]HandlerFunc
}

// NewEventHandler returns the handler implementation for a platform.
func NewEventHandler(platform string, cfg *config.Config) (EventHandler, error) {
	base := baseHandler{platform: platform, cfg: cfg}
	switch models.Platform(platform) {
	case models.PlatformFacebook:
		return &facebookHandler{baseHandler: base}, nil
	case models.PlatformInstagram:
		return &instagramHandler{baseHandler: base}, nil
	case models.PlatformTwitter:
		return &twitterHandler{baseHandler: base}, nil
	case models.PlatformLinkedIn:
		return &linkedinHandler{baseHandler: base}, nil
	}
	return nil, fmt.Errorf("no event handler for platform %q", platform)
}

// pendingNotification is queued during handling and persisted with the
// transaction; external dispatch happens after commit.
type pendingNotification struct {
	Type    string
	Content string
}

// HandlerContext carries everything a business handler may touch. Tx and
// Analytics are bound to the processing transaction, so every repository
// write commits or rolls back with the status transition.
type HandlerContext struct {
	Ctx       context.Context
	Tx        *gorm.DB
	Analytics repository.AnalyticsRepository
	Event     *models.WebhookEvent
	Norm      *NormalizedEvent
	Cfg       *config.Config

	pending []pendingNotification
}

// QueueNotification stages a notification for this event.
func (hc *HandlerContext) QueueNotification(notificationType, content string) {
	hc.pending = append(hc.pending, pendingNotification{Type: notificationType, Content: content})
}

// baseHandler carries the shared business logic every platform composes.
type baseHandler struct {
	platform string
	cfg      *config.Config
}

func (h *baseHandler) Platform() string {
	return h.platform
}

// defaultRoutes is the full base contract: every (object, event)
// combination the processor understands, wired to the shared logic.
// Platform handlers copy this table and override entries.
func (h *baseHandler) defaultRoutes() map[RouteKey]HandlerFunc {
	return map[RouteKey]HandlerFunc{
		{ObjectPost, EventCreated}:        h.handlePostCreated,
		{ObjectPost, EventUpdated}:        h.handlePostUpdated,
		{ObjectPost, EventDeleted}:        h.handlePostDeleted,
		{ObjectPost, EventEngagement}:     h.handlePostEngagement,
		{ObjectPost, EventMetricsUpdated}: h.handlePostMetricsUpdated,
		{ObjectPost, EventMention}:        h.handleMention,

		{ObjectComment, EventCreated}: h.handleCommentCreated,
		{ObjectComment, EventUpdated}: h.handleCommentUpdated,
		{ObjectComment, EventDeleted}: h.handleCommentDeleted,

		{ObjectMessage, EventReceived}: h.handleMessageReceived,

		{ObjectUser, EventFollowed}:   h.handleUserFollowed,
		{ObjectUser, EventUnfollowed}: h.handleUserUnfollowed,

		{ObjectLead, EventCreated}: h.handleLeadCreated,

		{ObjectStory, EventCreated}:        h.handleStoryCreated,
		{ObjectStory, EventExpired}:        h.handleStoryExpired,
		{ObjectStory, EventMetricsUpdated}: h.handleStoryMetrics,

		{ObjectAccount, EventUpdated}: h.handleAccountUpdated,
	}
}

// errIgnore signals "nothing to do" without failing the event.
var errIgnore = errors.New("nothing to handle")

// upsertAnalytics find-or-creates the analytics row for the event's object
// through the transaction-bound repository.
func (h *baseHandler) upsertAnalytics(hc *HandlerContext, platformPostID string) (*models.PostAnalytics, error) {
	if platformPostID == "" {
		return nil, errIgnore
	}
	return hc.Analytics.FindOrCreate(h.platform, platformPostID)
}

// mergeMetrics applies the normalized metrics to an analytics row:
// additive for interaction counters, replace for point-in-time gauges.
// It also runs milestone and viral detection against the merged totals.
func (h *baseHandler) mergeMetrics(hc *HandlerContext, row *models.PostAnalytics, additive bool) error {
	metrics := hc.Norm.EngagementMetrics
	previousTotal := row.TotalEngagement()

	apply := func(target *int64, key string) {
		v, ok := metrics[key]
		if !ok {
			return
		}
		if additive {
			*target += v
			if *target < 0 {
				*target = 0
			}
		} else {
			*target = v
		}
	}
	apply(&row.Likes, MetricLikes)
	apply(&row.Comments, MetricComments)
	apply(&row.Shares, MetricShares)
	apply(&row.Saves, MetricSaves)

	// Audience gauges are always point-in-time values.
	if v, ok := metrics[MetricReach]; ok {
		row.Reach = v
	}
	if v, ok := metrics[MetricImpressions]; ok {
		row.Impressions = v
	}

	row.MergeRawMetrics(metrics)
	row.RecomputeEngagementRate()

	total := row.TotalEngagement()
	h.detectMilestones(hc, row, previousTotal, total)
	h.detectViral(hc, row, total)

	return hc.Analytics.Save(row)
}

func (h *baseHandler) detectMilestones(hc *HandlerContext, row *models.PostAnalytics, previous, total int64) {
	// The persisted watermark guards against redeliveries that replay an
	// already-celebrated total.
	if row.LastMilestone > previous {
		previous = row.LastMilestone
	}
	for _, milestone := range CrossedMilestones(hc.Cfg.MilestoneLadder, previous, total) {
		row.LastMilestone = milestone
		hc.QueueNotification(models.NotificationEngagementMilestone,
			fmt.Sprintf("%s post %s reached %d total engagements", h.platform, row.PlatformPostID, milestone))
	}
}

func (h *baseHandler) detectViral(hc *HandlerContext, row *models.PostAnalytics, total int64) {
	threshold, ok := hc.Cfg.ViralThresholds[h.platform]
	if !ok {
		return
	}
	volume := row.Reach
	if volume == 0 {
		volume = row.Impressions
	}
	if IsViral(total, volume, threshold.RatePercent, threshold.MinVolume) {
		hc.QueueNotification(models.NotificationViralContent,
			fmt.Sprintf("%s post %s is going viral: %.1f%% engagement over %d audience",
				h.platform, row.PlatformPostID, row.EngagementRate, volume))
	}
}

// resolveAccount loads the owning social account when the event resolved one.
func (h *baseHandler) resolveAccount(hc *HandlerContext) (*models.SocialAccount, error) {
	if hc.Event.SocialAccountID == nil {
		return nil, errIgnore
	}
	var account models.SocialAccount
	if err := hc.Tx.First(&account, *hc.Event.SocialAccountID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// Shared handler implementations.

func (h *baseHandler) handlePostCreated(hc *HandlerContext) error {
	_, err := h.upsertAnalytics(hc, hc.Norm.ObjectID)
	if errors.Is(err, errIgnore) {
		return nil
	}
	return err
}

func (h *baseHandler) handlePostUpdated(hc *HandlerContext) error {
	row, err := h.upsertAnalytics(hc, hc.Norm.ObjectID)
	if errors.Is(err, errIgnore) {
		return nil
	}
	if err != nil {
		return err
	}
	return h.mergeMetrics(hc, row, false)
}

func (h *baseHandler) handlePostDeleted(hc *HandlerContext) error {
	// Deleted posts keep their analytics row for reporting; nothing to do.
	return nil
}

func (h *baseHandler) handlePostEngagement(hc *HandlerContext) error {
	row, err := h.upsertAnalytics(hc, hc.Norm.ObjectID)
	if errors.Is(err, errIgnore) {
		return nil
	}
	if err != nil {
		return err
	}
	return h.mergeMetrics(hc, row, true)
}

func (h *baseHandler) handlePostMetricsUpdated(hc *HandlerContext) error {
	row, err := h.upsertAnalytics(hc, hc.Norm.ObjectID)
	if errors.Is(err, errIgnore) {
		return nil
	}
	if err != nil {
		return err
	}
	return h.mergeMetrics(hc, row, false)
}

func (h *baseHandler) handleMention(hc *HandlerContext) error {
	if row, err := h.upsertAnalytics(hc, hc.Norm.ObjectID); err == nil {
		if merr := h.mergeMetrics(hc, row, true); merr != nil {
			return merr
		}
	} else if !errors.Is(err, errIgnore) {
		return err
	}
	h.scanSentiment(hc)
	return nil
}

func (h *baseHandler) handleCommentCreated(hc *HandlerContext) error {
	if row, err := h.upsertAnalytics(hc, hc.Norm.ObjectID); err == nil {
		row.Comments++
		row.RecomputeEngagementRate()
		if serr := hc.Analytics.Save(row); serr != nil {
			return serr
		}
	} else if !errors.Is(err, errIgnore) {
		return err
	}
	h.scanSentiment(hc)
	return nil
}

func (h *baseHandler) handleCommentUpdated(hc *HandlerContext) error {
	h.scanSentiment(hc)
	return nil
}

func (h *baseHandler) handleCommentDeleted(hc *HandlerContext) error {
	row, err := h.upsertAnalytics(hc, hc.Norm.ObjectID)
	if errors.Is(err, errIgnore) {
		return nil
	}
	if err != nil {
		return err
	}
	if row.Comments > 0 {
		row.Comments--
	}
	row.RecomputeEngagementRate()
	return hc.Analytics.Save(row)
}

func (h *baseHandler) handleMessageReceived(hc *HandlerContext) error {
	if kw := FirstUrgentKeyword(hc.Norm.ContentInfo.Text, hc.Cfg.UrgentKeywords); kw != "" {
		hc.QueueNotification(models.NotificationUrgentMessage,
			fmt.Sprintf("urgent %s message from %s matched keyword %q",
				h.platform, hc.Norm.UserInfo.ID, kw))
	}
	return nil
}

func (h *baseHandler) handleUserFollowed(hc *HandlerContext) error {
	account, err := h.resolveAccount(hc)
	if errors.Is(err, errIgnore) {
		return nil
	}
	if err != nil {
		return err
	}
	account.FollowersCount++
	if err := hc.Tx.Model(account).Update("followers_count", account.FollowersCount).Error; err != nil {
		return err
	}
	hc.QueueNotification(models.NotificationNewFollower,
		fmt.Sprintf("new %s follower: %s", h.platform, followerName(hc.Norm)))
	return nil
}

func (h *baseHandler) handleUserUnfollowed(hc *HandlerContext) error {
	account, err := h.resolveAccount(hc)
	if errors.Is(err, errIgnore) {
		return nil
	}
	if err != nil {
		return err
	}
	if account.FollowersCount > 0 {
		account.FollowersCount--
	}
	return hc.Tx.Model(account).Update("followers_count", account.FollowersCount).Error
}

func (h *baseHandler) handleLeadCreated(hc *HandlerContext) error {
	hc.QueueNotification(models.NotificationNewLead,
		fmt.Sprintf("new %s lead %s", h.platform, hc.Norm.ObjectID))
	return nil
}

func (h *baseHandler) handleStoryCreated(hc *HandlerContext) error {
	_, err := h.upsertAnalytics(hc, hc.Norm.ObjectID)
	if errors.Is(err, errIgnore) {
		return nil
	}
	return err
}

func (h *baseHandler) handleStoryExpired(hc *HandlerContext) error {
	return nil
}

func (h *baseHandler) handleStoryMetrics(hc *HandlerContext) error {
	row, err := h.upsertAnalytics(hc, hc.Norm.ObjectID)
	if errors.Is(err, errIgnore) {
		return nil
	}
	if err != nil {
		return err
	}
	return h.mergeMetrics(hc, row, false)
}

func (h *baseHandler) handleAccountUpdated(hc *HandlerContext) error {
	account, err := h.resolveAccount(hc)
	if errors.Is(err, errIgnore) {
		return nil
	}
	if err != nil {
		return err
	}
	updates := map[string]any{"last_event_at": hc.Norm.ReceivedAt.Format("2006-01-02T15:04:05Z07:00")}
	if v, ok := hc.Norm.EngagementMetrics["follower_count"]; ok {
		account.FollowersCount = v
		if err := hc.Tx.Model(account).Update("followers_count", v).Error; err != nil {
			return err
		}
	}
	return account.MergeMetadata(hc.Tx, updates)
}

// scanSentiment applies the keyword heuristic to comment/reply text and
// raises a notification with the platform's fixed negative score.
func (h *baseHandler) scanSentiment(hc *HandlerContext) {
	text := hc.Norm.ContentInfo.Text
	if text == "" {
		return
	}
	if SentimentScore(text, hc.Cfg.PositiveKeywords, hc.Cfg.NegativeKeywords) < 0 {
		hc.QueueNotification(models.NotificationNegativeSentiment,
			fmt.Sprintf("negative %s comment on %s (score %.1f): %.120s",
				h.platform, hc.Norm.ObjectID, hc.Cfg.SentimentScores[h.platform], text))
	}
}

func followerName(norm *NormalizedEvent) string {
	if norm.UserInfo.Name != "" {
		return norm.UserInfo.Name
	}
	if norm.UserInfo.ID != "" {
		return norm.UserInfo.ID
	}
	return "unknown user"
}
