package repository

import (
	"time"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
)

// WebhookEventRepository defines persistence operations for webhook events.
type WebhookEventRepository interface {
	// CreateIfNotExists inserts the event unless (platform, event_id)
	// already exists. Returns created=false for duplicates and loads the
	// stored row either way.
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	GetByID(id uint) (*models.WebhookEvent, error)
	ListByStatus(status string, limit int) ([]models.WebhookEvent, error)
	ListByPlatform(platform string, since time.Time, limit int) ([]models.WebhookEvent, error)
	CountSince(since time.Time, status string) (int64, error)
	CountFailedSince(since time.Time) (int64, error)
}

// WebhookConfigRepository defines lookup and management of webhook configs.
type WebhookConfigRepository interface {
	Create(cfg *models.WebhookConfig) error
	GetByID(id uint) (*models.WebhookConfig, error)
	FirstActiveForPlatform(platform string) (*models.WebhookConfig, error)
	RotateSecret(id uint, newSecret string) error
	Deactivate(id uint) error
}

// AnalyticsRepository defines the find-or-create + merge cycle for derived
// post analytics and account metadata.
type AnalyticsRepository interface {
	FindOrCreate(platform, platformPostID string) (*models.PostAnalytics, error)
	Save(analytics *models.PostAnalytics) error
	GetByPlatformPost(platform, platformPostID string) (*models.PostAnalytics, error)
}
