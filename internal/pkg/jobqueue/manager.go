package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/GuildPay/internal/pkg/metrics"
)

const defaultDepthInterval = 15 * time.Second

// Manager runs the queue together with its background tasks
type Manager struct {
	queue         *Queue
	depthInterval time.Duration
	depthTicker   *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

// NewManager wraps queue in a manager.
func NewManager(queue *Queue) *Manager {
	return &Manager{
		queue:         queue,
		depthInterval: defaultDepthInterval,
		stopCh:        make(chan struct{}),
	}
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

	m.depthTicker = time.NewTicker(m.depthInterval)
	m.wg.Add(1)
	go m.depthWorker()

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

	if m.depthTicker != nil {
		m.depthTicker.Stop()
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// Run starts the manager and blocks until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	m.Start()
	<-ctx.Done()
	m.Stop()
	return nil
}

// depthWorker publishes the pending queue length as a gauge
func (m *Manager) depthWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Depth worker stopping")
			return
		case <-m.depthTicker.C:
			m.reportDepthOnce()
		}
	}
}

func (m *Manager) reportDepthOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	size, err := m.queue.GetQueueSize(ctx)
	if err != nil {
		log.Errorf("[JobQueue Manager] Queue size error: %v", err)
		return
	}
	metrics.Get().SetQueueDepth(size)

	processing, err := m.queue.GetProcessingSize(ctx)
	if err != nil {
		log.Errorf("[JobQueue Manager] Processing size error: %v", err)
		return
	}
	metrics.Get().SetProcessingDepth(processing)
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
