package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
)

type gormWebhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a webhook event repository backed by GORM.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &gormWebhookEventRepository{db: db}
}

func (r *gormWebhookEventRepository) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "platform"},
			{Name: "event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	if !created {
		// Duplicate delivery: load the row that won the insert race.
		var existing models.WebhookEvent
		err := r.db.Where("platform = ? AND event_id = ?", event.Platform, event.EventID).
			First(&existing).Error
		if err != nil {
			return false, nil, err
		}
		return false, &existing, nil
	}
	return true, event, nil
}

func (r *gormWebhookEventRepository) GetByID(id uint) (*models.WebhookEvent, error) {
	return models.FindWebhookEventByID(r.db, id)
}

func (r *gormWebhookEventRepository) ListByStatus(status string, limit int) ([]models.WebhookEvent, error) {
	return models.FindWebhookEventsByStatus(r.db, status, limit)
}

func (r *gormWebhookEventRepository) ListByPlatform(platform string, since time.Time, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Where("platform = ? AND received_at >= ?", platform, since).
		Order("id DESC").Limit(limit).Find(&events).Error
	return events, err
}

func (r *gormWebhookEventRepository) CountSince(since time.Time, status string) (int64, error) {
	return models.CountWebhookEventsSince(r.db, since, status)
}

func (r *gormWebhookEventRepository) CountFailedSince(since time.Time) (int64, error) {
	return models.CountWebhookEventsSince(r.db, since, models.EventStatusFailed)
}
