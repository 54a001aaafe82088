package models

import (
	"time"

	"gorm.io/gorm"
)

// Webhook event lifecycle. Failed events may re-enter pending for a bounded
// number of retries; processed, ignored and permanently failed are terminal.
const (
	EventStatusPending    = "pending"
	EventStatusProcessing = "processing"
	EventStatusProcessed  = "processed"
	EventStatusIgnored    = "ignored"
	EventStatusFailed     = "failed"
)

// WebhookEvent stores one accepted inbound notification. It is written
// synchronously before any processing so a crash between acceptance and
// processing never loses an event.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Platform        string     `gorm:"type:varchar(20);not null;index:ux_webhook_events_platform_event,unique,priority:1;index" json:"platform"`
	EventID         string     `gorm:"type:varchar(191);not null;default:'';index:ux_webhook_events_platform_event,unique,priority:2" json:"event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	SocialAccountID *uint      `gorm:"index" json:"social_account_id,omitempty"`
	RawPayload      string     `gorm:"type:longtext;not null" json:"raw_payload"`
	Status          string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RetryCount      int        `gorm:"default:0" json:"retry_count"`
	ErrorMessage    string     `gorm:"type:text" json:"error_message"`
	ReceivedAt      time.Time  `gorm:"not null;index" json:"received_at"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the event reached a final state.
func (e *WebhookEvent) IsTerminal() bool {
	switch e.Status {
	case EventStatusProcessed, EventStatusIgnored:
		return true
	case EventStatusFailed:
		return false
	}
	return false
}

// ClaimForProcessing transitions the event into processing if and only if it
// is currently claimable (pending or failed-awaiting-retry). The rows-affected
// check is the mutual exclusion between racing workers; there is no separate
// distributed lock.
func (e *WebhookEvent) ClaimForProcessing(db *gorm.DB) (bool, error) {
	res := db.Model(&WebhookEvent{}).
		Where("id = ? AND status IN (?)", e.ID, []string{EventStatusPending, EventStatusFailed}).
		Update("status", EventStatusProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	e.Status = EventStatusProcessing
	return true, nil
}

// MarkProcessed finalizes the event as successfully handled.
func (e *WebhookEvent) MarkProcessed(db *gorm.DB) error {
	now := time.Now()
	e.Status = EventStatusProcessed
	e.ProcessedAt = &now
	e.ErrorMessage = ""
	return db.Model(e).Updates(map[string]any{
		"status":        EventStatusProcessed,
		"processed_at":  now,
		"error_message": "",
	}).Error
}

// MarkIgnored finalizes the event as deliberately unhandled. Ignored is not
// an error state; the reason explains why no handler ran.
func (e *WebhookEvent) MarkIgnored(db *gorm.DB, reason string) error {
	now := time.Now()
	e.Status = EventStatusIgnored
	e.ProcessedAt = &now
	e.ErrorMessage = reason
	return db.Model(e).Updates(map[string]any{
		"status":        EventStatusIgnored,
		"processed_at":  now,
		"error_message": reason,
	}).Error
}

// MarkFailed records a processing failure and bumps the retry counter.
func (e *WebhookEvent) MarkFailed(db *gorm.DB, errMsg string) error {
	e.Status = EventStatusFailed
	e.RetryCount++
	e.ErrorMessage = errMsg
	return db.Model(e).Updates(map[string]any{
		"status":        EventStatusFailed,
		"retry_count":   e.RetryCount,
		"error_message": errMsg,
	}).Error
}

// FindWebhookEventByID loads a single event.
func FindWebhookEventByID(db *gorm.DB, id uint) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := db.First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// FindWebhookEventsByStatus lists events in a given status, newest first.
func FindWebhookEventsByStatus(db *gorm.DB, status string, limit int) ([]WebhookEvent, error) {
	var events []WebhookEvent
	err := db.Where("status = ?", status).Order("id DESC").Limit(limit).Find(&events).Error
	return events, err
}

// CountWebhookEventsSince counts events received in the given window,
// optionally filtered by status ("" = all).
func CountWebhookEventsSince(db *gorm.DB, since time.Time, status string) (int64, error) {
	q := db.Model(&WebhookEvent{}).Where("received_at >= ?", since)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
