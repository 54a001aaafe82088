package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/mail"
)

// Sink fans notifications out to the configured channels. Channels that
// are not configured are skipped; delivery failures are logged and never
// propagated to the caller, processing must not fail because a chat hook
// is down.
type Sink struct {
	cfg    *config.Config
	client *http.Client
}

func NewSink(cfg *config.Config) *Sink {
	return &Sink{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Dispatch delivers an application notification (milestones, viral
// content, escalations) to every configured channel.
func (s *Sink) Dispatch(notificationType, content string, referenceID uint) {
	s.deliver(notificationType, fmt.Sprintf("SocialPulse: %s", notificationType), content, referenceID)
}

// DispatchAlert delivers an operational alert raised by the rule
// evaluator.
func (s *Sink) DispatchAlert(rule, severity, message string) {
	s.deliver("alert."+rule, fmt.Sprintf("[%s] SocialPulse alert: %s", severity, rule), message, 0)
}

func (s *Sink) deliver(kind, subject, content string, referenceID uint) {
	if s.cfg.AlertChatWebhookURL != "" {
		s.postJSON(s.cfg.AlertChatWebhookURL, map[string]any{
			"text": fmt.Sprintf("%s\n%s", subject, content),
		})
	}
	if s.cfg.AlertGenericHookURL != "" {
		s.postJSON(s.cfg.AlertGenericHookURL, map[string]any{
			"type":         kind,
			"subject":      subject,
			"content":      content,
			"reference_id": referenceID,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
		})
	}
	if s.cfg.AlertEmailRecipient != "" {
		if err := mail.SendMail(s.cfg.AlertEmailRecipient, subject, content); err != nil {
			log.Errorf("[Notify] Email delivery failed: %v", err)
		}
	}
}

func (s *Sink) postJSON(url string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("[Notify] Marshal failed: %v", err)
		return
	}
	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Errorf("[Notify] Webhook delivery to %s failed: %v", url, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Warnf("[Notify] Webhook delivery to %s returned status %d", url, resp.StatusCode)
	}
}
