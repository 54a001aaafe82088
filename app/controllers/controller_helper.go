package controllers

import (
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/guard"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/metrics"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/monitoring"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/webhook"
)

// Package-wide collaborators, wired once at startup via Setup.
var (
	appConfig     *config.Config
	requestGuard  *guard.Guard
	collector     *metrics.Collector
	processor     *webhook.Processor
	healthMonitor *monitoring.HealthMonitor
)

// Setup injects the controller collaborators. Must run before the router
// serves traffic.
func Setup(cfg *config.Config, g *guard.Guard, c *metrics.Collector, p *webhook.Processor, m *monitoring.HealthMonitor) {
	appConfig = cfg
	requestGuard = g
	collector = c
	processor = p
	healthMonitor = m
}
