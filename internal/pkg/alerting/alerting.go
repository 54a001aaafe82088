package alerting

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/metrics"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/notify"
)

const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Rule names double as cooldown keys and alert identifiers on the wire.
const (
	RuleHighErrorRate  = "high_error_rate"
	RuleQueueBacklog   = "queue_backlog"
	RuleHealthFailures = "consecutive_health_failures"
	RuleSlowResponse   = "slow_response_p95"
	RuleViolationSpike = "security_violation_spike"
	RuleDiskUsage      = "disk_usage"
)

// rule is a single evaluated condition. check returns whether the rule
// fires plus a human-readable message.
type rule struct {
	name     string
	severity string
	check    func() (bool, string)
}

// Evaluator periodically runs every alert rule against the current
// metrics and dispatches notifications for those that fire. A per-rule
// cooldown stops a persistent condition from flooding the channels; the
// cooldown doubles while a rule keeps re-firing and resets once it
// clears, capped at the configured maximum.
type Evaluator struct {
	cfg       *config.Config
	collector *metrics.Collector
	sink      *notify.Sink

	// External state providers, wired at startup.
	queueDepth     func() int64
	healthFailures func() int
	diskUsage      func() (percent float64, ok bool)

	mu        sync.Mutex
	lastFired map[string]time.Time
	cooldowns map[string]time.Duration

	stop chan struct{}
	done chan struct{}
}

func NewEvaluator(cfg *config.Config, collector *metrics.Collector, sink *notify.Sink,
	queueDepth func() int64, healthFailures func() int, diskUsage func() (float64, bool)) *Evaluator {
	return &Evaluator{
		cfg:            cfg,
		collector:      collector,
		sink:           sink,
		queueDepth:     queueDepth,
		healthFailures: healthFailures,
		diskUsage:      diskUsage,
		lastFired:      make(map[string]time.Time),
		cooldowns:      make(map[string]time.Duration),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Start launches the evaluation loop. Call Stop to shut it down.
func (e *Evaluator) Start() {
	go func() {
		defer close(e.done)
		ticker := time.NewTicker(e.cfg.AlertEvalInterval)
		defer ticker.Stop()
		log.Infof("[Alerting] Evaluator started, interval %s", e.cfg.AlertEvalInterval)
		for {
			select {
			case <-ticker.C:
				e.EvaluateAll()
			case <-e.stop:
				return
			}
		}
	}()
}

func (e *Evaluator) Stop() {
	close(e.stop)
	<-e.done
	log.Infof("[Alerting] Evaluator stopped")
}

// EvaluateAll runs every rule once. Exposed for the eval loop and tests.
func (e *Evaluator) EvaluateAll() {
	for _, r := range e.rules() {
		fired, msg := r.check()
		if !fired {
			e.clear(r.name)
			continue
		}
		if !e.shouldNotify(r.name) {
			continue
		}
		log.Warnf("[Alerting] %s (%s): %s", r.name, r.severity, msg)
		e.sink.DispatchAlert(r.name, r.severity, msg)
	}
}

func (e *Evaluator) rules() []rule {
	window := 5 * time.Minute
	return []rule{
		{
			name:     RuleHighErrorRate,
			severity: SeverityCritical,
			check: func() (bool, string) {
				rate := e.collector.ErrorRate(window)
				return rate > e.cfg.ErrorRateThreshold,
					fmt.Sprintf("processing error rate %.1f%% over the last %s exceeds %.1f%%",
						rate, window, e.cfg.ErrorRateThreshold)
			},
		},
		{
			name:     RuleQueueBacklog,
			severity: SeverityWarning,
			check: func() (bool, string) {
				depth := e.queueDepth()
				return depth > e.cfg.QueueBacklogLimit,
					fmt.Sprintf("queue backlog %d exceeds limit %d", depth, e.cfg.QueueBacklogLimit)
			},
		},
		{
			name:     RuleHealthFailures,
			severity: SeverityCritical,
			check: func() (bool, string) {
				n := e.healthFailures()
				return n >= e.cfg.HealthFailureLimit,
					fmt.Sprintf("%d consecutive health check failures (limit %d)", n, e.cfg.HealthFailureLimit)
			},
		},
		{
			name:     RuleSlowResponse,
			severity: SeverityWarning,
			check: func() (bool, string) {
				p95 := e.collector.Percentile(metrics.TypeResponseTimeMS, 95, window)
				return p95 > e.cfg.ResponseP95LimitMS,
					fmt.Sprintf("p95 response time %.0fms over the last %s exceeds %.0fms",
						p95, window, e.cfg.ResponseP95LimitMS)
			},
		},
		{
			name:     RuleViolationSpike,
			severity: SeverityCritical,
			check: func() (bool, string) {
				n := e.collector.CountSince(metrics.TypeViolation, window)
				return n > e.cfg.ViolationSpikeLimit,
					fmt.Sprintf("%d security violations in the last %s (limit %d)",
						n, window, e.cfg.ViolationSpikeLimit)
			},
		},
		{
			name:     RuleDiskUsage,
			severity: SeverityWarning,
			check: func() (bool, string) {
				percent, ok := e.diskUsage()
				if !ok {
					return false, ""
				}
				if percent >= e.cfg.DiskCriticalPercent {
					return true, fmt.Sprintf("disk usage %.1f%% is above critical threshold %.1f%%",
						percent, e.cfg.DiskCriticalPercent)
				}
				return percent >= e.cfg.DiskWarningPercent,
					fmt.Sprintf("disk usage %.1f%% is above warning threshold %.1f%%",
						percent, e.cfg.DiskWarningPercent)
			},
		},
	}
}

// shouldNotify applies the per-rule cooldown. While a rule keeps firing
// the cooldown doubles on each notification so a long-running incident
// produces a handful of reminders instead of one per interval.
func (e *Evaluator) shouldNotify(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	cooldown, known := e.cooldowns[name]
	if !known {
		cooldown = e.cfg.AlertCooldown
	}
	if last, ok := e.lastFired[name]; ok && time.Since(last) < cooldown {
		return false
	}
	e.lastFired[name] = time.Now()
	next := cooldown * 2
	if !known {
		next = e.cfg.AlertCooldown
	}
	if next > e.cfg.AlertCooldownMax {
		next = e.cfg.AlertCooldownMax
	}
	e.cooldowns[name] = next
	return true
}

func (e *Evaluator) clear(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.lastFired, name)
	delete(e.cooldowns, name)
}
