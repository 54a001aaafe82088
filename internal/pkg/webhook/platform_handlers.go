package webhook

import (
	"fmt"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
)

// The platform handlers compose the shared base contract and override the
// few combinations where provider behavior genuinely differs.

type facebookHandler struct {
	baseHandler
}

func (h *facebookHandler) Routes() map[RouteKey]HandlerFunc {
	routes := h.defaultRoutes()
	routes[RouteKey{ObjectLead, EventCreated}] = h.handleLeadgenCreated
	return routes
}

// handleLeadgenCreated includes the lead form reference Facebook sends
// alongside the lead id.
func (h *facebookHandler) handleLeadgenCreated(hc *HandlerContext) error {
	formID := ""
	if v, ok := hc.Norm.RawPath("entry.0.changes.0.value.form_id"); ok {
		formID = fmt.Sprintf("%v", v)
	}
	content := fmt.Sprintf("new facebook lead %s", hc.Norm.ObjectID)
	if formID != "" {
		content = fmt.Sprintf("%s (form %s)", content, formID)
	}
	hc.QueueNotification(models.NotificationNewLead, content)
	return nil
}

type instagramHandler struct {
	baseHandler
}

func (h *instagramHandler) Routes() map[RouteKey]HandlerFunc {
	routes := h.defaultRoutes()
	routes[RouteKey{ObjectStory, EventMetricsUpdated}] = h.handleStoryInsights
	return routes
}

// handleStoryInsights folds Instagram's story-only counters (taps, exits)
// into the raw metrics next to the shared vocabulary.
func (h *instagramHandler) handleStoryInsights(hc *HandlerContext) error {
	for _, field := range []string{"taps_forward", "taps_back", "exits"} {
		if v, ok := hc.Norm.RawPath("entry.0.changes.0.value." + field); ok {
			if f, isNum := v.(float64); isNum {
				hc.Norm.EngagementMetrics[field] = int64(f)
			}
		}
	}
	return h.handleStoryMetrics(hc)
}

type twitterHandler struct {
	baseHandler
}

func (h *twitterHandler) Routes() map[RouteKey]HandlerFunc {
	routes := h.defaultRoutes()
	routes[RouteKey{ObjectPost, EventCreated}] = h.handleTweetCreated
	return routes
}

// handleTweetCreated counts quote tweets of the account's content as a
// share on top of the plain post bookkeeping.
func (h *twitterHandler) handleTweetCreated(hc *HandlerContext) error {
	if v, ok := hc.Norm.RawPath("tweet_create_events.0.is_quote_status"); ok {
		if quoted, isBool := v.(bool); isBool && quoted {
			if id, ok := hc.Norm.RawPath("tweet_create_events.0.quoted_status.id_str"); ok {
				hc.Norm.ObjectID = fmt.Sprintf("%v", id)
				hc.Norm.EngagementMetrics[MetricShares] = 1
				return h.handlePostEngagement(hc)
			}
		}
	}
	return h.handlePostCreated(hc)
}

type linkedinHandler struct {
	baseHandler
}

func (h *linkedinHandler) Routes() map[RouteKey]HandlerFunc {
	routes := h.defaultRoutes()
	routes[RouteKey{ObjectAccount, EventUpdated}] = h.handleOrganizationUpdate
	return routes
}

// handleOrganizationUpdate stores the organization URN with the follower
// gauge so account metadata keeps the LinkedIn entity reference.
func (h *linkedinHandler) handleOrganizationUpdate(hc *HandlerContext) error {
	if err := h.handleAccountUpdated(hc); err != nil {
		return err
	}
	if hc.Event.SocialAccountID == nil || hc.Norm.ObjectID == "" {
		return nil
	}
	var account models.SocialAccount
	if err := hc.Tx.First(&account, *hc.Event.SocialAccountID).Error; err != nil {
		return nil
	}
	return account.MergeMetadata(hc.Tx, map[string]any{"organization_urn": hc.Norm.ObjectID})
}
