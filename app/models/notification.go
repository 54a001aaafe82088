package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification types emitted by the event processor and the alert evaluator.
const (
	NotificationEngagementMilestone = "engagement_milestone"
	NotificationViralContent        = "viral_content"
	NotificationNegativeSentiment   = "negative_sentiment"
	NotificationUrgentMessage       = "urgent_message"
	NotificationProcessingFailed    = "processing_failed"
	NotificationNewFollower         = "new_follower"
	NotificationNewLead             = "new_lead"
	NotificationAlert               = "alert"
)

type Notification struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	AccountID   uint           `gorm:"index" json:"account_id"`
	Type        string         `gorm:"type:varchar(50);index" json:"type"`
	Content     string         `gorm:"type:text" json:"content"`
	IsRead      bool           `gorm:"default:false" json:"is_read"`
	ReferenceID uint           `json:"reference_id"` // id of the object the notification refers to
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// CreateNotification creates a new notification record
func CreateNotification(db *gorm.DB, accountID uint, notificationType string, content string, referenceID uint) error {
	notification := Notification{
		AccountID:   accountID,
		Type:        notificationType,
		Content:     content,
		ReferenceID: referenceID,
		IsRead:      false,
	}

	return db.Create(&notification).Error
}
