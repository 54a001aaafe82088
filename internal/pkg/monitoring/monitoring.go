package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/sys/unix"

	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/cache"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/database"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/metrics"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckResult is the outcome of a single health check run.
type CheckResult struct {
	Name      string        `json:"name"`
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	LatencyMS float64       `json:"latency_ms,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
	Elapsed   time.Duration `json:"-"`
}

// Snapshot is the aggregated health picture served on the health
// endpoint and cached in Redis for external dashboards.
type Snapshot struct {
	Status    string        `json:"status"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

// HealthMonitor runs the periodic health checks and keeps the latest
// snapshot in memory. Queue depth is provided by the caller so the
// monitor stays independent of the queue implementation.
type HealthMonitor struct {
	cfg        *config.Config
	collector  *metrics.Collector
	queueDepth func() int64
	diskPath   string
	client     *http.Client

	mu          sync.RWMutex
	snapshot    Snapshot
	consecFails int

	stop chan struct{}
	done chan struct{}
}

func NewHealthMonitor(cfg *config.Config, collector *metrics.Collector, queueDepth func() int64) *HealthMonitor {
	return &HealthMonitor{
		cfg:        cfg,
		collector:  collector,
		queueDepth: queueDepth,
		diskPath:   "/",
		client:     &http.Client{Timeout: 5 * time.Second},
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the check loop. The first run happens immediately so
// the health endpoint has data as soon as the service is up.
func (m *HealthMonitor) Start() {
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.HealthCheckInterval)
		defer ticker.Stop()
		log.Infof("[Health] Monitor started (interval: %s)", m.cfg.HealthCheckInterval)

		m.RunOnce()

		for {
			select {
			case <-m.stop:
				log.Info("[Health] Monitor stopped")
				return
			case <-ticker.C:
				m.RunOnce()
			}
		}
	}()
}

func (m *HealthMonitor) Stop() {
	close(m.stop)
	<-m.done
}

// Current returns the latest snapshot.
func (m *HealthMonitor) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// ConsecutiveFailures reports how many runs in a row ended unhealthy.
// The alert evaluator reads this.
func (m *HealthMonitor) ConsecutiveFailures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.consecFails
}

// DiskUsage reports the used percentage of the monitored filesystem.
func (m *HealthMonitor) DiskUsage() (float64, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(m.diskPath, &st); err != nil {
		return 0, false
	}
	total := st.Blocks * uint64(st.Bsize)
	if total == 0 {
		return 0, false
	}
	free := st.Bavail * uint64(st.Bsize)
	return float64(total-free) / float64(total) * 100, true
}

// RunOnce executes every check and stores the snapshot. Exposed for the
// check loop and tests.
func (m *HealthMonitor) RunOnce() {
	checks := []CheckResult{
		m.checkDatabase(),
		m.checkCache(),
		m.checkQueue(),
		m.checkDisk(),
	}
	if m.cfg.MonitoredEndpointURL != "" {
		checks = append(checks, m.checkEndpoint())
	}

	status := StatusHealthy
	for _, c := range checks {
		switch c.Status {
		case StatusUnhealthy:
			status = StatusUnhealthy
		case StatusDegraded:
			if status == StatusHealthy {
				status = StatusDegraded
			}
		}
	}

	snap := Snapshot{Status: status, Checks: checks, CheckedAt: time.Now()}

	m.mu.Lock()
	m.snapshot = snap
	if status == StatusUnhealthy {
		m.consecFails++
	} else {
		m.consecFails = 0
	}
	m.mu.Unlock()

	m.collector.Record(metrics.TypeQueueDepth, nil, float64(m.queueDepth()))

	if b, err := json.Marshal(snap); err == nil {
		if err := cache.Set("health:snapshot", string(b), 2*m.cfg.HealthCheckInterval); err != nil {
			log.Errorf("[Health] Snapshot cache write failed: %v", err)
		}
	}
}

func (m *HealthMonitor) checkDatabase() CheckResult {
	start := time.Now()
	res := CheckResult{Name: "database", CheckedAt: start}
	db := database.GetDB()
	if db == nil {
		res.Status = StatusUnhealthy
		res.Message = "database not initialized"
		return res
	}
	sqlDB, err := db.DB()
	if err != nil {
		res.Status = StatusUnhealthy
		res.Message = err.Error()
		return res
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		res.Status = StatusUnhealthy
		res.Message = err.Error()
		return res
	}
	res.Status = StatusHealthy
	res.LatencyMS = float64(time.Since(start).Microseconds()) / 1000
	return res
}

func (m *HealthMonitor) checkCache() CheckResult {
	start := time.Now()
	res := CheckResult{Name: "cache", CheckedAt: start}
	client := cache.GetClient()
	if client == nil {
		res.Status = StatusUnhealthy
		res.Message = "cache not initialized"
		return res
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		res.Status = StatusUnhealthy
		res.Message = err.Error()
		return res
	}
	res.Status = StatusHealthy
	res.LatencyMS = float64(time.Since(start).Microseconds()) / 1000

	// Best-effort memory reading for the dashboard.
	if info, err := client.Info(ctx, "memory").Result(); err == nil {
		for _, line := range strings.Split(info, "\r\n") {
			if strings.HasPrefix(line, "used_memory_human:") {
				res.Message = "used_memory " + strings.TrimPrefix(line, "used_memory_human:")
				break
			}
		}
	}
	return res
}

func (m *HealthMonitor) checkQueue() CheckResult {
	res := CheckResult{Name: "queue", CheckedAt: time.Now()}
	depth := m.queueDepth()
	res.Message = fmt.Sprintf("depth %d", depth)
	switch {
	case depth > m.cfg.QueueBacklogLimit:
		res.Status = StatusUnhealthy
	case depth > m.cfg.QueueBacklogLimit/2:
		res.Status = StatusDegraded
	default:
		res.Status = StatusHealthy
	}
	return res
}

func (m *HealthMonitor) checkDisk() CheckResult {
	res := CheckResult{Name: "disk", CheckedAt: time.Now()}
	percent, ok := m.DiskUsage()
	if !ok {
		res.Status = StatusDegraded
		res.Message = "disk stats unavailable"
		return res
	}
	res.Message = fmt.Sprintf("used %.1f%%", percent)
	switch {
	case percent >= m.cfg.DiskCriticalPercent:
		res.Status = StatusUnhealthy
	case percent >= m.cfg.DiskWarningPercent:
		res.Status = StatusDegraded
	default:
		res.Status = StatusHealthy
	}
	return res
}

func (m *HealthMonitor) checkEndpoint() CheckResult {
	start := time.Now()
	res := CheckResult{Name: "endpoint", CheckedAt: start}
	req, err := http.NewRequest(http.MethodGet, m.cfg.MonitoredEndpointURL, nil)
	if err != nil {
		res.Status = StatusUnhealthy
		res.Message = err.Error()
		return res
	}
	resp, err := m.client.Do(req)
	if err != nil {
		res.Status = StatusUnhealthy
		res.Message = err.Error()
		return res
	}
	defer resp.Body.Close()
	res.LatencyMS = float64(time.Since(start).Microseconds()) / 1000
	if resp.StatusCode >= 500 {
		res.Status = StatusUnhealthy
		res.Message = fmt.Sprintf("status %d", resp.StatusCode)
	} else {
		res.Status = StatusHealthy
	}
	return res
}
