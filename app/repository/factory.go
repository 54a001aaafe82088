package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository implementations.
type Repositories struct {
	WebhookEvent  WebhookEventRepository
	WebhookConfig WebhookConfigRepository
	Analytics     AnalyticsRepository
}

// NewRepositories creates all repositories from one DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		WebhookEvent:  NewWebhookEventRepository(db),
		WebhookConfig: NewWebhookConfigRepository(db),
		Analytics:     NewAnalyticsRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetWebhookEventRepository returns the webhook event repository instance
func (f *Factory) GetWebhookEventRepository() WebhookEventRepository {
	return f.GetRepositories().WebhookEvent
}

// GetWebhookConfigRepository returns the webhook config repository instance
func (f *Factory) GetWebhookConfigRepository() WebhookConfigRepository {
	return f.GetRepositories().WebhookConfig
}

// GetAnalyticsRepository returns the analytics repository instance
func (f *Factory) GetAnalyticsRepository() AnalyticsRepository {
	return f.GetRepositories().Analytics
}

var (
	globalFactory     *Factory
	globalFactoryOnce sync.Once
)

// InitGlobalFactory wires the process-wide factory. Called once at startup.
func InitGlobalFactory(db *gorm.DB) {
	globalFactoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the process-wide factory.
func GetGlobalFactory() *Factory {
	return globalFactory
}
