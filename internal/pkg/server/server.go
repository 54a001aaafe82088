// Package server wires the whole service: config, storage, cache, guard,
// processor, queue, monitoring and alerting, then the HTTP surface on top.
// Both entrypoints build on it.
package server

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/SocialPulseHQ/SocialPulse/app/controllers"
	"github.com/SocialPulseHQ/SocialPulse/app/repository"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/alerting"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/cache"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/database"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/env"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/guard"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/jobqueue"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/metrics"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/monitoring"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/notify"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/router"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/webhook"
)

// New builds the fully wired application. The returned func stops the
// background components; call it after the listener returns.
func New() (*fiber.App, *config.Config, func()) {
	env.SetupEnvFile()
	cfg := config.Load()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitGlobalFactory(database.GetDB())

	collector := metrics.NewCollector(time.Minute, 10000)
	sink := notify.NewSink(cfg)

	processor, err := webhook.NewProcessor(cfg, database.GetDB(), sink, collector)
	if err != nil {
		log.Fatalf("processor setup: %v", err)
	}

	manager := jobqueue.InitManager(cfg, processor.Process)
	manager.Start()

	monitor := monitoring.NewHealthMonitor(cfg, collector, manager.QueueDepth)
	monitor.Start()

	evaluator := alerting.NewEvaluator(cfg, collector, sink,
		manager.QueueDepth, monitor.ConsecutiveFailures, monitor.DiskUsage)
	evaluator.Start()

	requestGuard := guard.New(cfg, repository.GetGlobalFactory().GetWebhookConfigRepository())
	requestGuard.Violations().OnRecord(func(violationType, platform string) {
		collector.Record(metrics.TypeViolation, map[string]string{
			"platform": platform, "type": violationType,
		}, 1)
	})
	requestGuard.Violations().OnSpike(func(violationType, platform, clientIP string, count int64) {
		sink.DispatchAlert(alerting.RuleViolationSpike, alerting.SeverityCritical,
			fmt.Sprintf("%d %s violations from %s on %s within one hour", count, violationType, clientIP, platform))
	})

	controllers.Setup(cfg, requestGuard, collector, processor, monitor)

	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.MaxPayloadBytes,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, cfg)

	return app, cfg, func() {
		evaluator.Stop()
		monitor.Stop()
		manager.Stop()
	}
}
