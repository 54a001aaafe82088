package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// SocialAccount is the connected platform account webhook events belong to.
type SocialAccount struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Platform          string    `gorm:"type:varchar(20);not null;index:ux_social_accounts_platform_account,unique,priority:1" json:"platform"`
	PlatformAccountID string    `gorm:"type:varchar(191);not null;index:ux_social_accounts_platform_account,unique,priority:2" json:"platform_account_id"`
	Name              string    `gorm:"type:varchar(255)" json:"name"`
	FollowersCount    int64     `gorm:"default:0" json:"followers_count"`
	MetadataJSON      string    `gorm:"type:text" json:"metadata"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Metadata decodes the free-form metadata document.
func (a *SocialAccount) Metadata() map[string]any {
	meta := map[string]any{}
	if a.MetadataJSON != "" {
		_ = json.Unmarshal([]byte(a.MetadataJSON), &meta)
	}
	return meta
}

// MergeMetadata merges the given keys into the stored metadata document and
// persists the result. Existing keys not present in updates are kept.
func (a *SocialAccount) MergeMetadata(db *gorm.DB, updates map[string]any) error {
	meta := a.Metadata()
	for k, v := range updates {
		meta[k] = v
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	a.MetadataJSON = string(data)
	return db.Model(a).Update("metadata_json", a.MetadataJSON).Error
}
