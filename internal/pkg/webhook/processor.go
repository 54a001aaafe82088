package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
	"github.com/SocialPulseHQ/SocialPulse/app/repository"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/cache"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/metrics"
)

const dedupKeyPrefix = "dedup:"

// Sink is the external notification collaborator. Dispatch failures are
// the sink's problem: they are logged there and never abort processing.
type Sink interface {
	Dispatch(notificationType, content string, referenceID uint)
}

// Processor drives the event state machine:
// pending → processing → processed | ignored | failed. Failed events
// re-enter pending through the queue collaborator up to the retry ceiling.
type Processor struct {
	cfg       *config.Config
	db        *gorm.DB
	handlers  map[string]EventHandler
	sink      Sink
	collector *metrics.Collector
}

// NewProcessor builds a processor with one handler per supported platform.
func NewProcessor(cfg *config.Config, db *gorm.DB, sink Sink, collector *metrics.Collector) (*Processor, error) {
	handlers := map[string]EventHandler{}
	for _, platform := range models.AllPlatforms {
		h, err := NewEventHandler(string(platform), cfg)
		if err != nil {
			return nil, err
		}
		handlers[string(platform)] = h
	}
	return &Processor{
		cfg:       cfg,
		db:        db,
		handlers:  handlers,
		sink:      sink,
		collector: collector,
	}, nil
}

// Process handles one stored webhook event to a terminal outcome.
func (p *Processor) Process(ctx context.Context, eventID uint) Outcome {
	started := time.Now()

	event, err := models.FindWebhookEventByID(p.db, eventID)
	if err != nil {
		return Failed(fmt.Errorf("load event %d: %w", eventID, err), false)
	}
	if event.IsTerminal() {
		return Ignored("event already finalized")
	}

	// Dedup before any work: a redelivered (platform, event_id) that was
	// already effectively processed is ignored, not reprocessed. SetNX is
	// the race arbiter between workers claiming concurrent redeliveries.
	dedupKey := ""
	if event.EventID != "" {
		dedupKey = dedupKeyPrefix + event.Platform + ":" + event.EventID
		fresh, derr := cache.SetNX(dedupKey, event.ID, p.cfg.DedupWindow)
		if derr != nil {
			log.Errorf("[Processor] dedup store unavailable: %v", derr)
		} else if !fresh {
			if owner, gerr := cache.Get(dedupKey); gerr == nil && owner == fmt.Sprint(event.ID) {
				// Our own claim from a previous failed attempt; continue.
			} else {
				reason := "duplicate delivery within dedup window"
				if merr := event.MarkIgnored(p.db, reason); merr != nil {
					log.Errorf("[Processor] failed to mark event %d ignored: %v", event.ID, merr)
				}
				return Ignored(reason)
			}
		}
	}

	claimed, err := event.ClaimForProcessing(p.db)
	if err != nil {
		return Failed(fmt.Errorf("claim event %d: %w", event.ID, err), true)
	}
	if !claimed {
		return Ignored("event claimed by another worker")
	}

	outcome := p.run(ctx, event)

	switch outcome.Kind {
	case OutcomeProcessed:
		p.record(metrics.TypeProcessingMS, event.Platform, float64(time.Since(started).Milliseconds()))
	case OutcomeFailed:
		// Release the dedup claim so a retry is not mistaken for a
		// duplicate delivery.
		if dedupKey != "" {
			_ = cache.Delete(dedupKey)
		}
		p.finalizeFailure(event, outcome)
	}
	return outcome
}

// run normalizes, routes and executes the business handler inside one
// transaction with the status finalization.
func (p *Processor) run(ctx context.Context, event *models.WebhookEvent) Outcome {
	normalizer, err := NewNormalizer(event.Platform)
	if err != nil {
		reason := err.Error()
		_ = event.MarkIgnored(p.db, reason)
		return Ignored(reason)
	}

	norm, err := normalizer.Normalize([]byte(event.RawPayload), event.ReceivedAt)
	if err != nil {
		// Undecodable payloads never improve with retries.
		msg := fmt.Sprintf("normalize: %v", err)
		_ = event.MarkFailed(p.db, msg)
		return Failed(fmt.Errorf("%s", msg), false)
	}

	// An account subscribes to specific provider fields; deliveries outside
	// that list are acknowledged but not acted on. A failing config lookup
	// fails open, subscription filtering is convenience, not security.
	if field := subscriptionField(event.Platform, norm); field != "" {
		if webhookCfg, cerr := models.FindActiveWebhookConfig(p.db, event.Platform); cerr == nil && !webhookCfg.IsSubscribed(field) {
			reason := fmt.Sprintf("field %q not in subscribed events", field)
			if merr := event.MarkIgnored(p.db, reason); merr != nil {
				log.Errorf("[Processor] failed to mark event %d ignored: %v", event.ID, merr)
			}
			return Ignored(reason)
		}
	}

	handler := p.handlers[event.Platform]
	route, ok := handler.Routes()[RouteKey{Object: norm.ObjectType, Event: norm.EventType}]
	if !ok {
		reason := fmt.Sprintf("no handler for %s/%s", norm.ObjectType, norm.EventType)
		log.Infof("[Processor] %s event %d: %s", event.Platform, event.ID, reason)
		if merr := event.MarkIgnored(p.db, reason); merr != nil {
			return Failed(fmt.Errorf("finalize ignored event %d: %w", event.ID, merr), true)
		}
		return Ignored(reason)
	}

	hc := &HandlerContext{
		Ctx:   ctx,
		Event: event,
		Norm:  norm,
		Cfg:   p.cfg,
	}

	// Analytics upsert, metadata merge, notification rows and the status
	// transition commit or roll back as one unit.
	err = p.db.Transaction(func(tx *gorm.DB) error {
		hc.Tx = tx
		hc.Analytics = repository.NewAnalyticsRepository(tx)
		if herr := route(hc); herr != nil {
			return herr
		}
		accountID := uint(0)
		if event.SocialAccountID != nil {
			accountID = *event.SocialAccountID
		}
		for _, n := range hc.pending {
			if nerr := models.CreateNotification(tx, accountID, n.Type, n.Content, event.ID); nerr != nil {
				return nerr
			}
		}
		return event.MarkProcessed(tx)
	})
	if err != nil {
		_ = event.MarkFailed(p.db, err.Error())
		return Failed(err, true)
	}

	// External dispatch only after the transaction committed; the sink is
	// best-effort by contract.
	if p.sink != nil {
		for _, n := range hc.pending {
			p.sink.Dispatch(n.Type, n.Content, event.ID)
		}
	}
	return Processed()
}

// finalizeFailure applies the retry policy bookkeeping after a failed
// attempt. The queue collaborator owns the actual redelivery.
func (p *Processor) finalizeFailure(event *models.WebhookEvent, outcome Outcome) {
	p.record(metrics.TypeProcessingFail, event.Platform, 1)
	log.Errorf("[Processor] event %d (%s) failed attempt %d: %v",
		event.ID, event.Platform, event.RetryCount, outcome.Err)

	if event.RetryCount >= 2 && p.sink != nil {
		content := fmt.Sprintf("processing of %s event %d keeps failing (attempt %d): %v",
			event.Platform, event.ID, event.RetryCount, outcome.Err)
		accountID := uint(0)
		if event.SocialAccountID != nil {
			accountID = *event.SocialAccountID
		}
		if err := models.CreateNotification(p.db, accountID, models.NotificationProcessingFailed, content, event.ID); err != nil {
			log.Errorf("[Processor] escalation notification failed: %v", err)
		}
		p.sink.Dispatch(models.NotificationProcessingFailed, content, event.ID)
	}
}

// subscriptionField maps a normalized event back to the provider-side
// subscription field it was delivered under, so it can be matched against
// the config's subscribed-events list. Empty means the payload carries no
// recognizable field and filtering is skipped.
func subscriptionField(platform string, norm *NormalizedEvent) string {
	switch models.Platform(platform) {
	case models.PlatformFacebook, models.PlatformInstagram:
		if _, ok := norm.RawPath("entry.0.messaging"); ok {
			return "messages"
		}
		if v, ok := norm.RawPath("entry.0.changes.0.field"); ok {
			if field, ok := v.(string); ok {
				return field
			}
		}
	case models.PlatformTwitter:
		for _, key := range []string{
			"tweet_create_events", "favorite_events", "direct_message_events",
			"follow_events", "tweet_delete_events",
		} {
			if _, ok := norm.RawPath(key); ok {
				return key
			}
		}
	case models.PlatformLinkedIn:
		if v, ok := norm.RawPath("eventType"); ok {
			if eventType, ok := v.(string); ok {
				return eventType
			}
		}
	}
	return ""
}

func (p *Processor) record(metricType, platform string, value float64) {
	if p.collector == nil {
		return
	}
	p.collector.Record(metricType, map[string]string{"platform": platform}, value)
}
