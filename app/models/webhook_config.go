package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// WebhookConfig holds the per-account webhook subscription: the shared
// secret used for signature verification, the verify token answered during
// endpoint-ownership challenges, and the subscribed event types.
type WebhookConfig struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SocialAccountID uint      `gorm:"index" json:"social_account_id"`
	Platform        string    `gorm:"type:varchar(20);not null;index" json:"platform"`
	Secret          string    `gorm:"type:varchar(255);not null" json:"-"`
	VerifyToken     string    `gorm:"type:varchar(255)" json:"-"`
	SubscribedJSON  string    `gorm:"type:text" json:"subscribed_events"`
	Active          bool      `gorm:"default:true;index" json:"active"`
	MetadataJSON    string    `gorm:"type:text" json:"metadata"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SubscribedEvents decodes the subscribed event type list.
func (c *WebhookConfig) SubscribedEvents() []string {
	var events []string
	if c.SubscribedJSON == "" {
		return events
	}
	_ = json.Unmarshal([]byte(c.SubscribedJSON), &events)
	return events
}

// SetSubscribedEvents encodes the subscribed event type list.
func (c *WebhookConfig) SetSubscribedEvents(events []string) {
	data, _ := json.Marshal(events)
	c.SubscribedJSON = string(data)
}

// IsSubscribed reports whether an event type is subscribed. An empty list
// means "all events".
func (c *WebhookConfig) IsSubscribed(eventType string) bool {
	events := c.SubscribedEvents()
	if len(events) == 0 {
		return true
	}
	for _, e := range events {
		if e == eventType {
			return true
		}
	}
	return false
}

// RotateSecret replaces the shared secret. Signatures computed with the old
// secret stop verifying immediately.
func (c *WebhookConfig) RotateSecret(db *gorm.DB, newSecret string) error {
	c.Secret = newSecret
	return db.Model(c).Update("secret", newSecret).Error
}

// FindWebhookConfigByID loads a config by primary key.
func FindWebhookConfigByID(db *gorm.DB, id uint) (*WebhookConfig, error) {
	var cfg WebhookConfig
	if err := db.First(&cfg, id).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindActiveWebhookConfig returns the first active config for a platform.
func FindActiveWebhookConfig(db *gorm.DB, platform string) (*WebhookConfig, error) {
	var cfg WebhookConfig
	err := db.Where("platform = ? AND active = ?", platform, true).
		Order("id ASC").First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
