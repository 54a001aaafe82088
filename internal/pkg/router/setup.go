package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
)

// Router installs a route group on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers every route group.
func InstallRouter(app *fiber.App, cfg *config.Config) {
	setup(app, NewApiRouter(cfg))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
