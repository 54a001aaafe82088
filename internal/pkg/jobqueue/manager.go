package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/database"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue         *Queue
	maxRetries    int
	recoverTicker *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// InitManager builds the global manager (singleton). Must be called once
// before GetManager, after database and cache are up.
func InitManager(cfg *config.Config, process ProcessFunc) *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			queue:      NewQueue(cfg.QueueWorkers, cfg.MaxRetries, cfg.ProcessingDelay, process),
			maxRetries: cfg.MaxRetries,
			stopCh:     make(chan struct{}),
		}
	})
	return globalManager
}

// GetManager returns the global job queue manager
func GetManager() *Manager {
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	// Re-enqueue events left in failed state below their retry ceiling,
	// e.g. after a restart wiped the in-flight retry timers.
	m.recoverTicker = time.NewTicker(2 * time.Minute)
	m.wg.Add(1)
	go m.recoverWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.recoverTicker != nil {
		m.recoverTicker.Stop()
	}

	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	m.wg.Wait()
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// recoverWorker runs periodically to re-enqueue retryable failed events
func (m *Manager) recoverWorker() {
	defer m.wg.Done()
	log.Info("[JobQueue Manager] Started recovery worker (interval: 2 minutes)")

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Recovery worker stopping")
			return
		case <-m.recoverTicker.C:
			if err := m.recoverFailedEvents(); err != nil {
				log.Errorf("[JobQueue Manager] Recovery error: %v", err)
			}
		}
	}
}

func (m *Manager) recoverFailedEvents() error {
	db := database.GetDB()
	if db == nil {
		return nil
	}
	events, err := models.FindWebhookEventsByStatus(db, models.EventStatusFailed, 100)
	if err != nil {
		return err
	}
	for i := range events {
		ev := &events[i]
		if ev.RetryCount >= m.maxRetries {
			continue
		}
		// Leave room for the in-process retry timer to fire first.
		if time.Since(ev.UpdatedAt) < 5*time.Minute {
			continue
		}
		if _, err := m.queue.EnqueueWebhookEvent(ev.ID, ev.Platform); err != nil {
			log.Errorf("[JobQueue Manager] Failed to re-enqueue event %d: %v", ev.ID, err)
		}
	}
	return nil
}

// QueueDepth reports pending plus in-flight jobs. Health and alerting
// read this.
func (m *Manager) QueueDepth() int64 {
	ctx := context.Background()
	pending, err := m.queue.GetQueueSize(ctx)
	if err != nil {
		return 0
	}
	processing, err := m.queue.GetProcessingSize(ctx)
	if err != nil {
		return pending
	}
	return pending + processing
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
