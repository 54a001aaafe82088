package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
)

type gormAnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates an analytics repository backed by GORM.
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &gormAnalyticsRepository{db: db}
}

func (r *gormAnalyticsRepository) FindOrCreate(platform, platformPostID string) (*models.PostAnalytics, error) {
	row := &models.PostAnalytics{
		Platform:       platform,
		PlatformPostID: platformPostID,
	}
	// Resolve the internal post id up front when the post is known here.
	if postID, err := models.ResolveSocialPostID(r.db, platform, platformPostID); err == nil && postID != nil {
		row.SocialPostID = postID
	}

	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "platform"},
			{Name: "platform_post_id"},
		},
		DoNothing: true,
	}).Create(row).Error; err != nil {
		return nil, err
	}

	// Ensure the stored row is loaded after the upsert.
	var stored models.PostAnalytics
	err := r.db.Where("platform = ? AND platform_post_id = ?", platform, platformPostID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *gormAnalyticsRepository) Save(analytics *models.PostAnalytics) error {
	return r.db.Save(analytics).Error
}

func (r *gormAnalyticsRepository) GetByPlatformPost(platform, platformPostID string) (*models.PostAnalytics, error) {
	var row models.PostAnalytics
	err := r.db.Where("platform = ? AND platform_post_id = ?", platform, platformPostID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
