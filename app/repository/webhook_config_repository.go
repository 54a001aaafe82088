package repository

import (
	"gorm.io/gorm"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
)

type gormWebhookConfigRepository struct {
	db *gorm.DB
}

// NewWebhookConfigRepository creates a webhook config repository backed by GORM.
func NewWebhookConfigRepository(db *gorm.DB) WebhookConfigRepository {
	return &gormWebhookConfigRepository{db: db}
}

func (r *gormWebhookConfigRepository) Create(cfg *models.WebhookConfig) error {
	return r.db.Create(cfg).Error
}

func (r *gormWebhookConfigRepository) GetByID(id uint) (*models.WebhookConfig, error) {
	return models.FindWebhookConfigByID(r.db, id)
}

func (r *gormWebhookConfigRepository) FirstActiveForPlatform(platform string) (*models.WebhookConfig, error) {
	return models.FindActiveWebhookConfig(r.db, platform)
}

func (r *gormWebhookConfigRepository) RotateSecret(id uint, newSecret string) error {
	cfg, err := models.FindWebhookConfigByID(r.db, id)
	if err != nil {
		return err
	}
	return cfg.RotateSecret(r.db, newSecret)
}

func (r *gormWebhookConfigRepository) Deactivate(id uint) error {
	return r.db.Model(&models.WebhookConfig{}).
		Where("id = ?", id).
		Update("active", false).Error
}
