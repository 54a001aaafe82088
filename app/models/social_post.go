package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// SocialPost maps a platform-native post id to an internal post record, so
// analytics rows can be tied back to content the user scheduled here.
type SocialPost struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	SocialAccountID uint       `gorm:"index" json:"social_account_id"`
	Platform        string     `gorm:"type:varchar(20);not null;index:ux_social_posts_platform_post,unique,priority:1" json:"platform"`
	PlatformPostID  string     `gorm:"type:varchar(191);not null;index:ux_social_posts_platform_post,unique,priority:2" json:"platform_post_id"`
	Content         string     `gorm:"type:text" json:"content"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ResolveSocialPostID returns the internal post id for a platform post, or
// nil when the post is unknown here (e.g. published outside the tool).
func ResolveSocialPostID(db *gorm.DB, platform, platformPostID string) (*uint, error) {
	var post SocialPost
	err := db.Select("id").
		Where("platform = ? AND platform_post_id = ?", platform, platformPostID).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post.ID, nil
}
